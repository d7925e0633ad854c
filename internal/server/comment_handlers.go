package server

import (
	"pariposhan/internal/middleware"
	"pariposhan/internal/models"
	"pariposhan/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateCommentRequest is the body of POST /api/items/:kind/:id/comments.
type CreateCommentRequest struct {
	Body     string `json:"body" validate:"required,max=10000"`
	ParentID *uint  `json:"parent_id" validate:"omitempty,gt=0"`
}

// GetComments handles GET /api/items/:kind/:id/comments
// @Summary Get an item's comment thread
// @Description Root comments oldest first, each with its replies.
// @Tags comments
// @Produce json
// @Param kind path string true "post, article or product"
// @Param id path int true "Item ID"
// @Success 200 {array} models.ThreadNode
// @Router /items/{kind}/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	ref, err := parseItemRef(c)
	if err != nil {
		return nil
	}
	thread, err := s.commentService.GetThread(c.UserContext(), ref)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(thread)
}

// CreateComment handles POST /api/items/:kind/:id/comments
// @Summary Comment on an item or reply to a comment
// @Tags comments
// @Accept json
// @Produce json
// @Param kind path string true "post, article or product"
// @Param id path int true "Item ID"
// @Param request body CreateCommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /items/{kind}/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ref, err := parseItemRef(c)
	if err != nil {
		return nil
	}
	var req CreateCommentRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.PostComment(c.UserContext(), middleware.PrincipalFrom(c), service.PostCommentInput{
		Item:     ref,
		Body:     req.Body,
		ParentID: req.ParentID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete a comment
// @Tags comments
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.commentService.DeleteComment(c.UserContext(), middleware.PrincipalFrom(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
