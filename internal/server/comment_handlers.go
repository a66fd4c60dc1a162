package server

import (
	"tourbook/internal/models"
	"tourbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	PostID          uint   `json:"post_id"`
	ParentCommentID *uint  `json:"parent_comment_id"`
	Content         string `json:"content"`
	Image           string `json:"image"`
}

// GetCommentTree returns a post's comments as nested reply trees (public)
// @Summary Get comment tree
// @Description Returns every comment of a post nested under its parent, with reaction counts. Authenticated callers also get their own reaction per comment.
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.CommentNode
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /posts/{id}/comments [get]
func (s *Server) GetCommentTree(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	tree, err := s.commentService.GetCommentTree(c.UserContext(), postID, viewerID)
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(tree)
}

// CreateComment adds a top-level comment or a reply (protected)
// @Summary Create comment
// @Description Creates a comment on a post. Set parent_comment_id to reply to a comment of the same post.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	if req.PostID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("post_id is required"))
	}

	created, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:          currentUserID(c),
		PostID:          req.PostID,
		ParentCommentID: req.ParentCommentID,
		Content:         req.Content,
		Image:           req.Image,
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// DeleteComment deletes a comment with all its replies and reactions (author only)
// @Summary Delete comment subtree
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Success 200 {object} service.DeleteResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	result, err := s.commentService.DeleteCommentSubtree(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		CommentID: commentID,
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(result)
}
