// Package service contains business logic for comment threads and reactions.
package service

import (
	"context"

	"tourbook/internal/models"
	"tourbook/internal/repository"
)

// ReactionSummary holds reaction data for a set of targets, keyed by target id.
// Targets without reactions are absent from every map.
type ReactionSummary struct {
	Counts map[uint]int64
	ByType map[uint]map[models.ReactionType]int64
	Mine   map[uint]models.ReactionType
}

func emptyReactionSummary() ReactionSummary {
	return ReactionSummary{
		Counts: map[uint]int64{},
		ByType: map[uint]map[models.ReactionType]int64{},
		Mine:   map[uint]models.ReactionType{},
	}
}

// ReactionAggregator computes reaction counts for many targets with a fixed
// number of queries.
type ReactionAggregator struct {
	reactions repository.ReactionRepository
}

func NewReactionAggregator(reactions repository.ReactionRepository) *ReactionAggregator {
	return &ReactionAggregator{reactions: reactions}
}

func (a *ReactionAggregator) CountsByTarget(ctx context.Context, targetType models.TargetType, ids []uint) (map[uint]int64, error) {
	if len(ids) == 0 {
		return map[uint]int64{}, nil
	}
	return a.reactions.CountsByTarget(ctx, targetType, ids)
}

func (a *ReactionAggregator) CountsByTargetAndType(ctx context.Context, targetType models.TargetType, ids []uint) (map[uint]map[models.ReactionType]int64, error) {
	if len(ids) == 0 {
		return map[uint]map[models.ReactionType]int64{}, nil
	}
	return a.reactions.CountsByTargetAndType(ctx, targetType, ids)
}

// CurrentUserReaction returns the viewer's reaction per target. Anonymous
// viewers (id 0) have none.
func (a *ReactionAggregator) CurrentUserReaction(ctx context.Context, targetType models.TargetType, ids []uint, viewerID uint) (map[uint]models.ReactionType, error) {
	if len(ids) == 0 || viewerID == 0 {
		return map[uint]models.ReactionType{}, nil
	}
	return a.reactions.UserReactions(ctx, targetType, ids, viewerID)
}

// Aggregate collects totals, per-type counts and the viewer's reaction in at
// most three queries.
func (a *ReactionAggregator) Aggregate(ctx context.Context, targetType models.TargetType, ids []uint, viewerID uint) (ReactionSummary, error) {
	summary := emptyReactionSummary()
	if len(ids) == 0 {
		return summary, nil
	}

	var err error
	if summary.Counts, err = a.CountsByTarget(ctx, targetType, ids); err != nil {
		return ReactionSummary{}, err
	}
	if summary.ByType, err = a.CountsByTargetAndType(ctx, targetType, ids); err != nil {
		return ReactionSummary{}, err
	}
	if summary.Mine, err = a.CurrentUserReaction(ctx, targetType, ids, viewerID); err != nil {
		return ReactionSummary{}, err
	}
	return summary, nil
}
