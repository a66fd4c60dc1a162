package repository

import (
	"context"

	"tourbook/internal/models"
	"tourbook/internal/observability"

	"gorm.io/gorm"
)

// PostRepository answers post existence checks for the comment engine.
type PostRepository interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	defer observability.TrackQuery("exists", "posts")()

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, storageError(err)
	}
	return count > 0, nil
}
