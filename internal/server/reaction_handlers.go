package server

import (
	"tourbook/internal/models"
	"tourbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

type reactRequest struct {
	TargetType   string `json:"target_type"`
	TargetID     uint   `json:"target_id"`
	ReactionType string `json:"reaction_type"`
}

// React sets the caller's reaction on a post or comment (protected)
// @Summary React to a post or comment
// @Description Creates the caller's reaction or replaces the type of an existing one.
// @Tags reactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reactRequest true "Reaction"
// @Success 200 {object} models.Reaction
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reactions [put]
func (s *Server) React(c *fiber.Ctx) error {
	var req reactRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	reaction, err := s.reactionService.React(c.UserContext(), service.ReactInput{
		UserID:       currentUserID(c),
		TargetType:   req.TargetType,
		TargetID:     req.TargetID,
		ReactionType: req.ReactionType,
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(reaction)
}

// RemoveReaction deletes the caller's reaction on a target (protected)
// @Summary Remove reaction
// @Tags reactions
// @Security BearerAuth
// @Param targetType path string true "POST or COMMENT"
// @Param targetId path int true "Target ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reactions/{targetType}/{targetId} [delete]
func (s *Server) RemoveReaction(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "targetId")
	if err != nil {
		return nil
	}

	if err := s.reactionService.RemoveReaction(c.UserContext(), service.RemoveReactionInput{
		UserID:     currentUserID(c),
		TargetType: c.Params("targetType"),
		TargetID:   targetID,
	}); err != nil {
		return respondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetReactions returns the reaction summary of a target (public)
// @Summary Reaction summary
// @Tags reactions
// @Produce json
// @Param targetType path string true "POST or COMMENT"
// @Param targetId path int true "Target ID"
// @Success 200 {object} service.TargetReactions
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reactions/{targetType}/{targetId} [get]
func (s *Server) GetReactions(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "targetId")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	summary, err := s.reactionService.Summary(c.UserContext(), c.Params("targetType"), targetID, viewerID)
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(summary)
}
