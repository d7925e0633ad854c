package server

import (
	"strconv"

	"pariposhan/internal/middleware"
	"pariposhan/internal/models"
	"pariposhan/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitProductRequest is the body of POST /api/products.
type SubmitProductRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Brand       string `json:"brand" validate:"max=120"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"omitempty,category"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// SubmitReviewRequest is the body of POST /api/products/:id/reviews.
type SubmitReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=5000"`
}

// ListProducts handles GET /api/products
// @Summary List products
// @Description Verified products only, unless the caller is a moderator.
// @Tags products
// @Produce json
// @Param verified query bool false "Filter by verification (moderators)"
// @Param category query string false "Category slug"
// @Param q query string false "Name or brand search"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Product
// @Router /products [get]
func (s *Server) ListProducts(c *fiber.Ctx) error {
	var verified *bool
	if raw := c.Query("verified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("verified must be true or false"))
		}
		verified = &v
	}

	page := parsePagination(c, 20)
	products, err := s.productService.ListProducts(c.UserContext(), middleware.PrincipalFrom(c), service.ListProductsInput{
		Verified: verified,
		Category: c.Query("category"),
		Query:    c.Query("q"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(products)
}

// GetProduct handles GET /api/products/:id
// @Summary Get a product with its rating aggregate
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} models.ErrorResponse
// @Router /products/{id} [get]
func (s *Server) GetProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	product, err := s.productService.GetProduct(c.UserContext(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(product)
}

// SubmitProduct handles POST /api/products
// @Summary Submit a product for verification
// @Tags products
// @Accept json
// @Produce json
// @Param request body SubmitProductRequest true "Product"
// @Success 201 {object} models.Product
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products [post]
func (s *Server) SubmitProduct(c *fiber.Ctx) error {
	var req SubmitProductRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	product, err := s.productService.SubmitProduct(c.UserContext(), middleware.PrincipalFrom(c), service.SubmitProductInput{
		Name:        req.Name,
		Brand:       req.Brand,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// ListReviews handles GET /api/products/:id/reviews
// @Summary List approved reviews
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {array} models.ProductReview
// @Router /products/{id}/reviews [get]
func (s *Server) ListReviews(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	reviews, err := s.productService.ListReviews(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reviews)
}

// SubmitReview handles POST /api/products/:id/reviews
// @Summary Rate a product
// @Description The rating counts toward the aggregate immediately unless
// @Description review pre-moderation is on.
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param request body SubmitReviewRequest true "Review"
// @Success 201 {object} models.ProductReview
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id}/reviews [post]
func (s *Server) SubmitReview(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req SubmitReviewRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	review, err := s.productService.SubmitReview(c.UserContext(), middleware.PrincipalFrom(c), service.SubmitReviewInput{
		ProductID: id,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}
