package service

import (
	"cmp"
	"maps"
	"slices"

	"tourbook/internal/models"
)

// BuildCommentTree nests a post's flat comment list into reply trees.
//
// Roots keep their input order; replies at every level are ordered by
// (created_at, id). A reply whose parent is not in comments is dropped along
// with its own replies, and its id is returned in orphans.
func BuildCommentTree(comments []*models.Comment, summary ReactionSummary, authors map[uint]models.AuthorProfile) (roots []*models.CommentNode, orphans []uint) {
	arena := make([]*models.CommentNode, len(comments))
	children := make([][]int, len(comments))
	index := make(map[uint]int, len(comments))
	for i, c := range comments {
		arena[i] = newCommentNode(c, summary, authors)
		index[c.ID] = i
	}

	roots = make([]*models.CommentNode, 0)
	for i, c := range comments {
		if c.ParentCommentID == nil {
			roots = append(roots, arena[i])
			continue
		}
		p, ok := index[*c.ParentCommentID]
		if !ok || p == i {
			orphans = append(orphans, c.ID)
			continue
		}
		children[p] = append(children[p], i)
	}

	for i, kids := range children {
		slices.SortStableFunc(kids, func(a, b int) int {
			return compareComments(comments[a], comments[b])
		})
		for _, k := range kids {
			arena[i].Replies = append(arena[i].Replies, arena[k])
		}
	}
	return roots, orphans
}

func compareComments(a, b *models.Comment) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func newCommentNode(c *models.Comment, summary ReactionSummary, authors map[uint]models.AuthorProfile) *models.CommentNode {
	node := &models.CommentNode{
		ID:              c.ID,
		PostID:          c.PostID,
		AuthorID:        c.UserID,
		ParentCommentID: c.ParentCommentID,
		Content:         c.Content,
		Image:           c.Image,
		CreatedAt:       c.CreatedAt,
		Author:          authors[c.UserID],
		ReactionCount:   summary.Counts[c.ID],
		ReactionCounts:  map[models.ReactionType]int64{},
		Replies:         make([]*models.CommentNode, 0),
	}
	if byType, ok := summary.ByType[c.ID]; ok {
		node.ReactionCounts = maps.Clone(byType)
	}
	if mine, ok := summary.Mine[c.ID]; ok {
		node.MyReaction = &mine
	}
	return node
}
