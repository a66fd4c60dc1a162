package service

import (
	"context"

	"tourbook/internal/cache"
	"tourbook/internal/models"
	"tourbook/internal/observability"
	"tourbook/internal/repository"

	"gorm.io/gorm"
)

type ReactionService struct {
	db           *gorm.DB
	reactionRepo repository.ReactionRepository
	commentRepo  repository.CommentRepository
	postRepo     repository.PostRepository
	aggregator   *ReactionAggregator
}

type ReactInput struct {
	UserID       uint
	TargetType   string
	TargetID     uint
	ReactionType string
}

type RemoveReactionInput struct {
	UserID     uint
	TargetType string
	TargetID   uint
}

// TargetReactions is the reaction summary of a single post or comment.
type TargetReactions struct {
	TargetType     models.TargetType             `json:"target_type"`
	TargetID       uint                          `json:"target_id"`
	ReactionCount  int64                         `json:"reaction_count"`
	ReactionCounts map[models.ReactionType]int64 `json:"reaction_counts"`
	MyReaction     *models.ReactionType          `json:"my_reaction,omitempty"`
}

func NewReactionService(
	db *gorm.DB,
	reactionRepo repository.ReactionRepository,
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
) *ReactionService {
	return &ReactionService{
		db:           db,
		reactionRepo: reactionRepo,
		commentRepo:  commentRepo,
		postRepo:     postRepo,
		aggregator:   NewReactionAggregator(reactionRepo),
	}
}

// React sets the user's reaction on a target, replacing any earlier one.
func (s *ReactionService) React(ctx context.Context, in ReactInput) (*models.Reaction, error) {
	span, ctx := observability.NewSpan(ctx, "ReactionService.React",
		observability.AttrTargetType.String(in.TargetType),
		observability.AttrTargetID.Int64(int64(in.TargetID)),
	)
	defer span.End()

	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	targetType, err := models.ParseTargetType(in.TargetType)
	if err != nil {
		return nil, err
	}
	reactionType, err := models.ParseReactionType(in.ReactionType)
	if err != nil {
		return nil, err
	}

	if in.TargetID == 0 {
		return nil, models.NewValidationError("target_id is required")
	}
	if targetType == models.TargetTypePost {
		if _, err := s.resolveTarget(ctx, targetType, in.TargetID); err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	// A target comment stays share-locked until the reaction commits, so a
	// subtree delete cannot remove it in between.
	var (
		reaction *models.Reaction
		postID   uint
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if targetType == models.TargetTypeComment {
			comment, err := s.commentRepo.WithTx(tx).Locking(repository.LockShare).GetByID(ctx, in.TargetID)
			if err != nil {
				return err
			}
			postID = comment.PostID
		}
		var err error
		reaction, err = s.reactionRepo.WithTx(tx).Upsert(ctx, in.UserID, targetType, in.TargetID, reactionType)
		return err
	})
	if err != nil {
		err = classifyTxError(err)
		span.SetError(err)
		return nil, err
	}
	if targetType == models.TargetTypeComment {
		cache.InvalidateCommentTree(ctx, postID)
	}
	return reaction, nil
}

// RemoveReaction deletes the user's reaction on a target.
func (s *ReactionService) RemoveReaction(ctx context.Context, in RemoveReactionInput) error {
	if in.UserID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	targetType, err := models.ParseTargetType(in.TargetType)
	if err != nil {
		return err
	}

	if err := s.reactionRepo.Remove(ctx, in.UserID, targetType, in.TargetID); err != nil {
		return err
	}
	if targetType == models.TargetTypeComment {
		if comment, err := s.commentRepo.GetByID(ctx, in.TargetID); err == nil {
			cache.InvalidateCommentTree(ctx, comment.PostID)
		}
	}
	return nil
}

// Summary returns the reaction totals of one target and, for a signed-in
// viewer, their own reaction.
func (s *ReactionService) Summary(ctx context.Context, rawTargetType string, targetID, viewerID uint) (*TargetReactions, error) {
	targetType, err := models.ParseTargetType(rawTargetType)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolveTarget(ctx, targetType, targetID); err != nil {
		return nil, err
	}

	summary, err := s.aggregator.Aggregate(ctx, targetType, []uint{targetID}, viewerID)
	if err != nil {
		return nil, err
	}

	out := &TargetReactions{
		TargetType:     targetType,
		TargetID:       targetID,
		ReactionCount:  summary.Counts[targetID],
		ReactionCounts: map[models.ReactionType]int64{},
	}
	if byType, ok := summary.ByType[targetID]; ok {
		out.ReactionCounts = byType
	}
	if mine, ok := summary.Mine[targetID]; ok {
		out.MyReaction = &mine
	}
	return out, nil
}

// resolveTarget checks the target exists and returns the post it belongs to.
func (s *ReactionService) resolveTarget(ctx context.Context, targetType models.TargetType, targetID uint) (uint, error) {
	if targetID == 0 {
		return 0, models.NewValidationError("target_id is required")
	}
	if targetType == models.TargetTypeComment {
		comment, err := s.commentRepo.GetByID(ctx, targetID)
		if err != nil {
			return 0, err
		}
		return comment.PostID, nil
	}

	exists, err := s.postRepo.Exists(ctx, targetID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, models.NewNotFoundError("Post", targetID)
	}
	return targetID, nil
}
