package server

import (
	"log/slog"

	"pariposhan/internal/middleware"
	"pariposhan/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SetFeatureFlagRequest is the body of PUT /api/admin/feature-flags/:name.
type SetFeatureFlagRequest struct {
	Value string `json:"value" validate:"required"`
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flags
// @Tags feature-flags
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	p := middleware.PrincipalFrom(c)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(p.UserID),
	})
}

// SetFeatureFlag flips one flag at runtime. Values are on, off or a rollout
// percentage such as 25%.
// @Summary Set a feature flag
// @Tags feature-flags
// @Accept json
// @Produce json
// @Param name path string true "Flag name"
// @Param request body SetFeatureFlagRequest true "Value"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/feature-flags/{name} [put]
func (s *Server) SetFeatureFlag(c *fiber.Ctx) error {
	var req SetFeatureFlagRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	name := c.Params("name")
	if err := s.featureFlags.Set(name, req.Value); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}

	middleware.Logger.InfoContext(c.UserContext(), "feature flag updated",
		slog.String("flag", name), slog.String("value", req.Value))
	return s.GetFeatureFlags(c)
}
