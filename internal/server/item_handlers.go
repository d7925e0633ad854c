package server

import (
	"pariposhan/internal/middleware"
	"pariposhan/internal/models"
	"pariposhan/internal/policy"
	"pariposhan/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateItemRequest is the body of POST /api/items.
type CreateItemRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=post article"`
	Title    string `json:"title" validate:"required,max=300"`
	Body     string `json:"body" validate:"required"`
	Category string `json:"category" validate:"omitempty,category"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

// ListItems handles GET /api/items
// @Summary List posts and articles
// @Description Newest first by default; sort=top orders by likes.
// @Tags items
// @Produce json
// @Param kind query string false "post or article"
// @Param category query string false "Category slug"
// @Param sort query string false "new or top"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Item
// @Failure 400 {object} models.ErrorResponse
// @Router /items [get]
func (s *Server) ListItems(c *fiber.Ctx) error {
	var kind models.ItemKind
	if raw := c.Query("kind"); raw != "" {
		k, err := models.ParseItemKind(raw)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		kind = k
	}

	page := parsePagination(c, 20)
	items, err := s.itemService.ListItems(c.UserContext(), middleware.PrincipalFrom(c), service.ListItemsInput{
		Kind:     kind,
		Category: c.Query("category"),
		AuthorID: uint(c.QueryInt("author_id", 0)),
		Sort:     models.ItemSort(c.Query("sort")),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(items)
}

// GetItem handles GET /api/items/:kind/:id
// @Summary Get one item
// @Tags items
// @Produce json
// @Param kind path string true "post, article or product"
// @Param id path int true "Item ID"
// @Success 200 {object} models.Item
// @Failure 404 {object} models.ErrorResponse
// @Router /items/{kind}/{id} [get]
func (s *Server) GetItem(c *fiber.Ctx) error {
	ref, err := parseItemRef(c)
	if err != nil {
		return nil
	}
	viewer := middleware.PrincipalFrom(c)

	if ref.Kind == models.ItemKindProduct {
		product, err := s.productService.GetProduct(c.UserContext(), viewer, ref.ID)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.JSON(product)
	}

	item, err := s.itemService.GetItem(c.UserContext(), viewer, ref)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(item)
}

// CreateItem handles POST /api/items
// @Summary Publish a post or article
// @Tags items
// @Accept json
// @Produce json
// @Param request body CreateItemRequest true "Item"
// @Success 201 {object} models.Item
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /items [post]
func (s *Server) CreateItem(c *fiber.Ctx) error {
	var req CreateItemRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	item, err := s.itemService.CreateItem(c.UserContext(), middleware.PrincipalFrom(c), service.CreateItemInput{
		Kind:     models.ItemKind(req.Kind),
		Title:    req.Title,
		Body:     req.Body,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// DeleteItem handles DELETE /api/items/:kind/:id
// @Summary Delete an item
// @Description Authors delete their own posts and articles. Products are
// @Description removed by moderators only.
// @Tags items
// @Param kind path string true "post, article or product"
// @Param id path int true "Item ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /items/{kind}/{id} [delete]
func (s *Server) DeleteItem(c *fiber.Ctx) error {
	ref, err := parseItemRef(c)
	if err != nil {
		return nil
	}
	actor := middleware.PrincipalFrom(c)

	if ref.Kind == models.ItemKindProduct {
		if !policy.CanModerate(actor) {
			return models.RespondWithAppError(c,
				models.NewUnauthorizedError("Only moderators can remove products"))
		}
		if _, err := s.moderationService.RemoveContent(c.UserContext(), actor, models.ReportTargetProduct, ref.ID); err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}

	if err := s.itemService.DeleteItem(c.UserContext(), actor, ref); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleReaction handles POST /api/items/:kind/:id/reactions/toggle
// @Summary Like or unlike an item
// @Tags reactions
// @Produce json
// @Param kind path string true "post, article or product"
// @Param id path int true "Item ID"
// @Success 200 {object} models.ReactionState
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /items/{kind}/{id}/reactions/toggle [post]
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	ref, err := parseItemRef(c)
	if err != nil {
		return nil
	}
	state, err := s.reactionService.ToggleReaction(c.UserContext(), middleware.PrincipalFrom(c), ref)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(state)
}
