package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tourbook/internal/models"
	"tourbook/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row lock strengths for Locking.
const (
	LockShare  = "SHARE"
	LockUpdate = "UPDATE"
)

// CommentRepository is the comment store: flat rows linked by parent pointers.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	ListChildren(ctx context.Context, parentIDs ...uint) ([]*models.Comment, error)
	DeleteMany(ctx context.Context, ids []uint) (int64, error)
	WithTx(tx *gorm.DB) CommentRepository
	// Locking returns a store whose GetByID and ListChildren lock the rows
	// they read until the surrounding transaction ends.
	Locking(strength string) CommentRepository
}

type commentRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
	lock   string
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, logger: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) WithTx(tx *gorm.DB) CommentRepository {
	return &commentRepository{db: tx, logger: r.logger, lock: r.lock}
}

func (r *commentRepository) Locking(strength string) CommentRepository {
	return &commentRepository{db: r.db, logger: r.logger, lock: strength}
}

func (r *commentRepository) read(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.lock != "" {
		q = q.Clauses(clause.Locking{Strength: r.lock})
	}
	return q
}

// Create validates and inserts a comment. A reply must point at an existing
// comment of the same post. The parent is read FOR SHARE in the insert's
// transaction, so a concurrent subtree delete either waits for the reply to
// commit and removes it too, or has already removed the parent.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()

	comment.Content = strings.TrimSpace(comment.Content)
	if comment.Content == "" {
		return models.NewValidationError("Content is required")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if comment.ParentCommentID != nil {
			var parent models.Comment
			err := tx.Clauses(clause.Locking{Strength: LockShare}).
				Select("id", "post_id").
				First(&parent, *comment.ParentCommentID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewValidationError(fmt.Sprintf("Parent comment %d does not exist", *comment.ParentCommentID))
			}
			if err != nil {
				return err
			}
			if parent.PostID != comment.PostID {
				return models.NewValidationError("Parent comment belongs to a different post")
			}
		}
		return tx.Create(comment).Error
	})
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if err != nil {
		r.logger.LogError(ctx, err, "create")
		return storageError(err)
	}

	r.logger.LogCreate(ctx, map[string]any{
		"comment_id": comment.ID,
		"post_id":    comment.PostID,
		"is_reply":   comment.IsReply(),
	})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	defer observability.TrackQuery("get", "comments")()

	var comment models.Comment
	err := r.read(ctx).First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Comment", id)
	}
	if err != nil {
		return nil, storageError(err)
	}
	return &comment, nil
}

// ListByPost returns every comment of the post, top-level and replies, oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	defer observability.TrackQuery("list_by_post", "comments")()

	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, storageError(err)
	}
	return comments, nil
}

// ListChildren returns the direct replies of the given comments, oldest first.
func (r *commentRepository) ListChildren(ctx context.Context, parentIDs ...uint) ([]*models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	defer observability.TrackQuery("list_children", "comments")()

	var comments []*models.Comment
	err := r.read(ctx).
		Where("parent_comment_id IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, storageError(err)
	}
	return comments, nil
}

// DeleteMany hard-deletes the given comments. Callers run it inside a transaction.
func (r *commentRepository) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	defer observability.TrackQuery("delete_many", "comments")()

	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Comment{})
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "delete")
		return 0, storageError(res.Error)
	}
	r.logger.LogDelete(ctx, map[string]any{"comment_ids": ids, "rows": res.RowsAffected})
	return res.RowsAffected, nil
}
