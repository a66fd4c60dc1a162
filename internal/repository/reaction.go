package repository

import (
	"context"
	"time"

	"tourbook/internal/models"
	"tourbook/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository stores reactions keyed by (user, target type, target id).
// Every method taking an id set answers an empty set without querying.
type ReactionRepository interface {
	CountsByTarget(ctx context.Context, targetType models.TargetType, ids []uint) (map[uint]int64, error)
	CountsByTargetAndType(ctx context.Context, targetType models.TargetType, ids []uint) (map[uint]map[models.ReactionType]int64, error)
	UserReactions(ctx context.Context, targetType models.TargetType, ids []uint, userID uint) (map[uint]models.ReactionType, error)
	Upsert(ctx context.Context, userID uint, targetType models.TargetType, targetID uint, reactionType models.ReactionType) (*models.Reaction, error)
	Remove(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) error
	DeleteByTargets(ctx context.Context, targetType models.TargetType, ids []uint) (int64, error)
	WithTx(tx *gorm.DB) ReactionRepository
}

type reactionRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db, logger: observability.NewRepoLogger("reactions")}
}

func (r *reactionRepository) WithTx(tx *gorm.DB) ReactionRepository {
	return &reactionRepository{db: tx, logger: r.logger}
}

type targetCount struct {
	TargetID uint
	Total    int64
}

type targetTypeCount struct {
	TargetID     uint
	ReactionType models.ReactionType
	Total        int64
}

type targetReaction struct {
	TargetID     uint
	ReactionType models.ReactionType
}

func (r *reactionRepository) CountsByTarget(ctx context.Context, targetType models.TargetType, ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	defer observability.TrackQuery("counts_by_target", "reactions")()

	var rows []targetCount
	err := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Select("target_id, COUNT(*) AS total").
		Where("target_type = ? AND target_id IN ?", targetType, ids).
		Group("target_id").
		Scan(&rows).Error
	if err != nil {
		return nil, storageError(err)
	}
	for _, row := range rows {
		counts[row.TargetID] = row.Total
	}
	return counts, nil
}

func (r *reactionRepository) CountsByTargetAndType(ctx context.Context, targetType models.TargetType, ids []uint) (map[uint]map[models.ReactionType]int64, error) {
	counts := make(map[uint]map[models.ReactionType]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	defer observability.TrackQuery("counts_by_target_and_type", "reactions")()

	var rows []targetTypeCount
	err := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Select("target_id, reaction_type, COUNT(*) AS total").
		Where("target_type = ? AND target_id IN ?", targetType, ids).
		Group("target_id, reaction_type").
		Scan(&rows).Error
	if err != nil {
		return nil, storageError(err)
	}
	for _, row := range rows {
		byType, ok := counts[row.TargetID]
		if !ok {
			byType = make(map[models.ReactionType]int64)
			counts[row.TargetID] = byType
		}
		byType[row.ReactionType] = row.Total
	}
	return counts, nil
}

func (r *reactionRepository) UserReactions(ctx context.Context, targetType models.TargetType, ids []uint, userID uint) (map[uint]models.ReactionType, error) {
	reactions := make(map[uint]models.ReactionType)
	if len(ids) == 0 {
		return reactions, nil
	}
	defer observability.TrackQuery("user_reactions", "reactions")()

	var rows []targetReaction
	err := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Select("target_id, reaction_type").
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, targetType, ids).
		Scan(&rows).Error
	if err != nil {
		return nil, storageError(err)
	}
	for _, row := range rows {
		reactions[row.TargetID] = row.ReactionType
	}
	return reactions, nil
}

// Upsert inserts the user's reaction on the target or, when one exists,
// overwrites its type and refreshes its timestamp. The unique index on
// (user_id, target_type, target_id) resolves concurrent upserts to one row.
func (r *reactionRepository) Upsert(ctx context.Context, userID uint, targetType models.TargetType, targetID uint, reactionType models.ReactionType) (*models.Reaction, error) {
	defer observability.TrackQuery("upsert", "reactions")()

	reaction := models.Reaction{
		UserID:       userID,
		TargetType:   targetType,
		TargetID:     targetID,
		ReactionType: reactionType,
		CreatedAt:    time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_type"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reaction_type", "created_at"}),
		}).Create(&reaction).Error; err != nil {
			return err
		}
		var stored models.Reaction
		if err := tx.
			Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
			First(&stored).Error; err != nil {
			return err
		}
		reaction = stored
		return nil
	})
	if err != nil {
		r.logger.LogError(ctx, err, "upsert")
		return nil, storageError(err)
	}

	r.logger.LogUpdate(ctx, map[string]any{
		"user_id":       userID,
		"target_type":   string(targetType),
		"target_id":     targetID,
		"reaction_type": string(reactionType),
	})
	return &reaction, nil
}

// Remove deletes the user's reaction on the target.
func (r *reactionRepository) Remove(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) error {
	defer observability.TrackQuery("remove", "reactions")()

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Delete(&models.Reaction{})
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "delete")
		return storageError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Reaction on "+string(targetType), targetID)
	}
	return nil
}

// DeleteByTargets removes every reaction attached to the given targets.
func (r *reactionRepository) DeleteByTargets(ctx context.Context, targetType models.TargetType, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	defer observability.TrackQuery("delete_by_targets", "reactions")()

	res := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id IN ?", targetType, ids).
		Delete(&models.Reaction{})
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "delete")
		return 0, storageError(res.Error)
	}
	r.logger.LogDelete(ctx, map[string]any{
		"target_type": string(targetType),
		"target_ids":  ids,
		"rows":        res.RowsAffected,
	})
	return res.RowsAffected, nil
}
