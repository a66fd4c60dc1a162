package repository

import (
	"context"

	"tourbook/internal/models"
	"tourbook/internal/observability"

	"gorm.io/gorm"
)

// UserRepository resolves author display metadata.
type UserRepository interface {
	GetProfiles(ctx context.Context, ids []uint) (map[uint]models.AuthorProfile, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetProfiles(ctx context.Context, ids []uint) (map[uint]models.AuthorProfile, error) {
	profiles := make(map[uint]models.AuthorProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}
	defer observability.TrackQuery("get_profiles", "users")()

	var users []models.User
	err := r.db.WithContext(ctx).
		Select("id", "username", "display_name", "avatar_url").
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, storageError(err)
	}
	for i := range users {
		profiles[users[i].ID] = users[i].Profile()
	}
	return profiles, nil
}
