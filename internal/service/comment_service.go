package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"tourbook/internal/cache"
	"tourbook/internal/database"
	"tourbook/internal/models"
	"tourbook/internal/observability"
	"tourbook/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultMaxCommentLength = 10000
	maxImageURLLength       = 2048
	// cascadeBatchSize bounds the IN lists of one subtree walk or delete statement.
	cascadeBatchSize = 500
)

type CommentService struct {
	db           *gorm.DB
	commentRepo  repository.CommentRepository
	reactionRepo repository.ReactionRepository
	postRepo     repository.PostRepository
	userRepo     repository.UserRepository
	aggregator   *ReactionAggregator
	opts         CommentOptions
}

// CommentOptions tunes a CommentService. Zero values fall back to defaults,
// except TreeCacheTTL where zero disables the anonymous tree cache.
type CommentOptions struct {
	MaxContentLength int
	TreeCacheTTL     time.Duration
}

type CreateCommentInput struct {
	UserID          uint
	PostID          uint
	ParentCommentID *uint
	Content         string
	Image           string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

// DeleteResult describes what a cascading delete removed.
type DeleteResult struct {
	CommentID         uint   `json:"comment_id"`
	PostID            uint   `json:"post_id"`
	DeletedCommentIDs []uint `json:"deleted_comment_ids"`
	DeletedReactions  int64  `json:"deleted_reactions"`
}

func NewCommentService(
	db *gorm.DB,
	commentRepo repository.CommentRepository,
	reactionRepo repository.ReactionRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	opts CommentOptions,
) *CommentService {
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = defaultMaxCommentLength
	}
	return &CommentService{
		db:           db,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		postRepo:     postRepo,
		userRepo:     userRepo,
		aggregator:   NewReactionAggregator(reactionRepo),
		opts:         opts,
	}
}

// GetCommentTree returns the post's comments as reply trees with reaction
// data. viewerID 0 means an anonymous viewer; only those trees are cached.
func (s *CommentService) GetCommentTree(ctx context.Context, postID, viewerID uint) ([]*models.CommentNode, error) {
	span, ctx := observability.NewSpan(ctx, "CommentService.GetCommentTree",
		observability.AttrPostID.Int64(int64(postID)),
		observability.AttrViewerAnonymous.Bool(viewerID == 0),
	)
	defer span.End()

	if err := s.requirePost(ctx, postID); err != nil {
		span.SetError(err)
		return nil, err
	}

	if viewerID != 0 || s.opts.TreeCacheTTL <= 0 {
		tree, err := s.buildTree(ctx, postID, viewerID)
		span.SetError(err)
		return tree, err
	}

	gen, err := cache.CommentTreeGeneration(ctx, postID)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "comment tree cache unavailable",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
		tree, err := s.buildTree(ctx, postID, 0)
		span.SetError(err)
		return tree, err
	}

	var tree []*models.CommentNode
	hit, err := cache.Aside(ctx, cache.CommentTreeKey(postID, gen), &tree, s.opts.TreeCacheTTL, func() error {
		built, err := s.buildTree(ctx, postID, 0)
		if err != nil {
			return err
		}
		tree = built
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if hit {
		observability.CommentTreeCache.WithLabelValues("hit").Inc()
	} else {
		observability.CommentTreeCache.WithLabelValues("miss").Inc()
	}
	span.AddAttributes(observability.AttrTreeCacheHit.Bool(hit))
	return tree, nil
}

func (s *CommentService) buildTree(ctx context.Context, postID, viewerID uint) ([]*models.CommentNode, error) {
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return []*models.CommentNode{}, nil
	}

	ids := make([]uint, 0, len(comments))
	authorIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
		authorIDs = append(authorIDs, c.UserID)
	}
	slices.Sort(authorIDs)
	authorIDs = slices.Compact(authorIDs)

	summary, err := s.aggregator.Aggregate(ctx, models.TargetTypeComment, ids, viewerID)
	if err != nil {
		return nil, err
	}
	authors, err := s.userRepo.GetProfiles(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	roots, orphans := BuildCommentTree(comments, summary, authors)
	for _, id := range orphans {
		observability.CommentTreeOrphans.Inc()
		observability.GlobalLogger.WarnContext(ctx, "comment tree orphan dropped",
			slog.Uint64("post_id", uint64(postID)),
			slog.Uint64("comment_id", uint64(id)),
		)
	}
	return roots, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	span, ctx := observability.NewSpan(ctx, "CommentService.CreateComment",
		observability.AttrPostID.Int64(int64(in.PostID)),
		observability.AttrCommentReply.Bool(in.ParentCommentID != nil),
	)
	defer span.End()

	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	// The store applies the same trim and emptiness rule on insert; checking
	// here rejects blank input before the post lookup.
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > s.opts.MaxContentLength {
		return nil, models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", s.opts.MaxContentLength))
	}
	image := strings.TrimSpace(in.Image)
	if len(image) > maxImageURLLength {
		return nil, models.NewValidationError("Image URL too long")
	}
	if in.ParentCommentID != nil && *in.ParentCommentID == 0 {
		return nil, models.NewValidationError("Invalid parent comment id")
	}

	if err := s.requirePost(ctx, in.PostID); err != nil {
		span.SetError(err)
		return nil, err
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		UserID:          in.UserID,
		ParentCommentID: in.ParentCommentID,
		Content:         content,
		Image:           image,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		span.SetError(err)
		return nil, err
	}

	cache.InvalidateCommentTree(ctx, in.PostID)
	return comment, nil
}

// DeleteCommentSubtree removes a comment, every reply beneath it and every
// reaction on any of them in one transaction. Only the author may delete.
// Once started the delete runs to completion even if ctx is cancelled.
func (s *CommentService) DeleteCommentSubtree(ctx context.Context, in DeleteCommentInput) (*DeleteResult, error) {
	span, ctx := observability.NewSpan(ctx, "CommentService.DeleteCommentSubtree",
		observability.AttrCommentID.Int64(int64(in.CommentID)),
	)
	defer span.End()

	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only delete your own comments")
	}

	ctx = context.WithoutCancel(ctx)
	var result *DeleteResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.deleteSubtree(ctx, s.commentRepo.WithTx(tx), s.reactionRepo.WithTx(tx), in)
		result = r
		return err
	})
	if err != nil {
		err = classifyTxError(err)
		span.SetError(err)
		observability.GlobalLogger.ErrorContext(ctx, "comment subtree delete rolled back",
			slog.Uint64("comment_id", uint64(in.CommentID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	observability.CommentCascadeSize.Observe(float64(len(result.DeletedCommentIDs)))
	span.AddAttributes(
		observability.AttrCascadeComments.Int(len(result.DeletedCommentIDs)),
		observability.AttrCascadeReacts.Int64(result.DeletedReactions),
	)
	cache.InvalidateCommentTree(ctx, result.PostID)
	observability.GlobalLogger.InfoContext(ctx, "comment subtree deleted",
		slog.Uint64("comment_id", uint64(result.CommentID)),
		slog.Uint64("post_id", uint64(result.PostID)),
		slog.Int("comments", len(result.DeletedCommentIDs)),
		slog.Int64("reactions", result.DeletedReactions),
	)
	return result, nil
}

// deleteSubtree runs inside the delete transaction. The root and every level
// of the walk are read FOR UPDATE: a reply or reaction racing the delete
// either commits first and is swept up here, or finds its parent gone.
func (s *CommentService) deleteSubtree(ctx context.Context, comments repository.CommentRepository, reactions repository.ReactionRepository, in DeleteCommentInput) (*DeleteResult, error) {
	locked := comments.Locking(repository.LockUpdate)
	root, err := locked.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if root.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only delete your own comments")
	}

	descendants, err := collectDescendants(ctx, locked, root.ID)
	if err != nil {
		return nil, err
	}
	all := append([]uint{root.ID}, descendants...)

	var reactionRows int64
	for batch := range slices.Chunk(all, cascadeBatchSize) {
		n, err := reactions.DeleteByTargets(ctx, models.TargetTypeComment, batch)
		if err != nil {
			return nil, err
		}
		reactionRows += n
	}
	for batch := range slices.Chunk(descendants, cascadeBatchSize) {
		if _, err := comments.DeleteMany(ctx, batch); err != nil {
			return nil, err
		}
	}
	n, err := comments.DeleteMany(ctx, []uint{root.ID})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, models.NewNotFoundError("Comment", root.ID)
	}

	return &DeleteResult{
		CommentID:         root.ID,
		PostID:            root.PostID,
		DeletedCommentIDs: all,
		DeletedReactions:  reactionRows,
	}, nil
}

// collectDescendants walks the reply tree under rootID level by level and
// returns every descendant id, nearest levels first.
func collectDescendants(ctx context.Context, comments repository.CommentRepository, rootID uint) ([]uint, error) {
	var ids []uint
	seen := map[uint]struct{}{rootID: {}}
	frontier := []uint{rootID}
	for len(frontier) > 0 {
		var next []uint
		for batch := range slices.Chunk(frontier, cascadeBatchSize) {
			children, err := comments.ListChildren(ctx, batch...)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				if _, ok := seen[c.ID]; ok {
					continue
				}
				seen[c.ID] = struct{}{}
				ids = append(ids, c.ID)
				next = append(next, c.ID)
			}
		}
		frontier = next
	}
	return ids, nil
}

func (s *CommentService) requirePost(ctx context.Context, postID uint) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

// classifyTxError keeps application errors and wraps begin/commit failures
// as storage errors.
func classifyTxError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStorageError(err, database.IsRetryable(err))
}
