package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tourbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// afterCommentQuery runs fn once, right after the first comments SELECT that
// follows arming.
func afterCommentQuery(t *testing.T, db *gorm.DB, fn func()) *atomic.Bool {
	t.Helper()
	armed := &atomic.Bool{}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("tourbook:after_comment_query", func(tx *gorm.DB) {
		if tx.Statement.Table == "comments" && armed.CompareAndSwap(true, false) {
			fn()
		}
	}))
	return armed
}

type deleteOutcome struct {
	result *DeleteResult
	err    error
}

func waitForDelete(t *testing.T, done <-chan deleteOutcome) deleteOutcome {
	t.Helper()
	select {
	case out := <-done:
		return out
	case <-time.After(10 * time.Second):
		t.Fatal("subtree delete did not finish")
		return deleteOutcome{}
	}
}

// assertNoDanglingRows checks that every reply has a parent and every comment
// reaction has a comment.
func assertNoDanglingRows(t *testing.T, db *gorm.DB) {
	t.Helper()
	var replies int64
	require.NoError(t, db.Model(&models.Comment{}).
		Where("parent_comment_id IS NOT NULL AND parent_comment_id NOT IN (?)", db.Model(&models.Comment{}).Select("id")).
		Count(&replies).Error)
	assert.Zero(t, replies, "replies without a parent")

	var reactions int64
	require.NoError(t, db.Model(&models.Reaction{}).
		Where("target_type = ? AND target_id NOT IN (?)", models.TargetTypeComment, db.Model(&models.Comment{}).Select("id")).
		Count(&reactions).Error)
	assert.Zero(t, reactions, "reactions on deleted comments")
}

func TestCommentService_ReplyCommittedBeforeSubtreeDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestCommentService(db, CommentOptions{})
	f := newCascadeFixture(t, svc)
	ctx := context.Background()

	done := make(chan deleteOutcome, 1)
	armed := afterCommentQuery(t, db, func() {
		go func() {
			r, err := svc.DeleteCommentSubtree(ctx, DeleteCommentInput{UserID: f.ana.ID, CommentID: f.a.ID})
			done <- deleteOutcome{result: r, err: err}
		}()
	})

	// The delete starts while the reply's parent check is in flight.
	armed.Store(true)
	reply, err := svc.CreateComment(ctx, CreateCommentInput{
		UserID:          f.ben.ID,
		PostID:          f.post.ID,
		ParentCommentID: &f.c.ID,
		Content:         "racing reply",
	})
	require.NoError(t, err)
	require.False(t, armed.Load(), "delete was never started")

	out := waitForDelete(t, done)
	require.NoError(t, out.err)
	assert.Equal(t, []uint{f.a.ID, f.b.ID, f.c.ID, reply.ID}, out.result.DeletedCommentIDs)
	assert.Zero(t, countRows(t, db, &models.Comment{}, "id = ?", reply.ID))
	assertNoDanglingRows(t, db)
}

func TestCommentService_ReactionCommittedBeforeSubtreeDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestCommentService(db, CommentOptions{})
	rs := newTestReactionService(db)
	f := newCascadeFixture(t, svc)
	ctx := context.Background()

	done := make(chan deleteOutcome, 1)
	armed := afterCommentQuery(t, db, func() {
		go func() {
			r, err := svc.DeleteCommentSubtree(ctx, DeleteCommentInput{UserID: f.ana.ID, CommentID: f.a.ID})
			done <- deleteOutcome{result: r, err: err}
		}()
	})

	armed.Store(true)
	_, err := rs.React(ctx, ReactInput{UserID: f.ana.ID, TargetType: "COMMENT", TargetID: f.c.ID, ReactionType: "wow"})
	require.NoError(t, err)
	require.False(t, armed.Load(), "delete was never started")

	out := waitForDelete(t, done)
	require.NoError(t, out.err)
	assert.Equal(t, int64(4), out.result.DeletedReactions)
	assertNoDanglingRows(t, db)
}

func TestCommentService_ConcurrentRepliesAndSubtreeDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestCommentService(db, CommentOptions{})
	rs := newTestReactionService(db)
	f := newCascadeFixture(t, svc)
	ctx := context.Background()

	const writers = 12
	var (
		wg         sync.WaitGroup
		replyErrs  [writers]error
		reactErrs  [writers]error
		deleteErr  error
		replyIDs   [writers]uint
		parentIDs  = []uint{f.a.ID, f.b.ID, f.c.ID}
		reactTypes = models.ReactionTypes
	)

	for i := range writers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			parent := parentIDs[i%len(parentIDs)]
			c, err := svc.CreateComment(ctx, CreateCommentInput{UserID: f.ben.ID, PostID: f.post.ID, ParentCommentID: &parent, Content: "reply"})
			replyErrs[i] = err
			if err == nil {
				replyIDs[i] = c.ID
			}
		}()
		go func() {
			defer wg.Done()
			_, reactErrs[i] = rs.React(ctx, ReactInput{
				UserID:       f.ana.ID + uint(i)*100,
				TargetType:   "COMMENT",
				TargetID:     parentIDs[i%len(parentIDs)],
				ReactionType: string(reactTypes[i%len(reactTypes)]),
			})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, deleteErr = svc.DeleteCommentSubtree(ctx, DeleteCommentInput{UserID: f.ana.ID, CommentID: f.a.ID})
	}()
	wg.Wait()

	require.NoError(t, deleteErr)
	for i := range writers {
		if err := replyErrs[i]; err != nil {
			assert.True(t, models.HasCode(err, models.CodeValidation), "reply %d: %v", i, err)
		}
		if err := reactErrs[i]; err != nil {
			assert.True(t, models.HasCode(err, models.CodeNotFound), "reaction %d: %v", i, err)
		}
		if replyIDs[i] != 0 {
			assert.Zero(t, countRows(t, db, &models.Comment{}, "id = ?", replyIDs[i]), "reply %d survived the delete", i)
		}
	}
	assert.Equal(t, int64(1), countRows(t, db, &models.Comment{}, "post_id = ?", f.post.ID))
	assertNoDanglingRows(t, db)
}
