package server

import (
	"pariposhan/internal/middleware"
	"pariposhan/internal/models"
	"pariposhan/internal/service"

	"github.com/gofiber/fiber/v2"
)

// FileReportRequest is the body of POST /api/reports.
type FileReportRequest struct {
	TargetKind  string `json:"target_kind" validate:"required,reportkind"`
	TargetID    uint   `json:"target_id" validate:"required,gt=0"`
	TargetTitle string `json:"target_title" validate:"max=300"`
	Reason      string `json:"reason" validate:"required,reason"`
	Details     string `json:"details" validate:"max=2000"`
}

// ResolveReportRequest is the body of POST /api/admin/reports/:id/resolve.
type ResolveReportRequest struct {
	Action string `json:"action" validate:"required,oneof=dismiss remove_target"`
}

// ApproveProductRequest is the optional body of POST /api/admin/products/:id/approve.
type ApproveProductRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

// ReconcileRequest narrows POST /api/admin/reconcile to one item. An empty
// body sweeps everything.
type ReconcileRequest struct {
	Kind string `json:"kind" validate:"omitempty,itemkind"`
	ID   uint   `json:"id" validate:"required_with=Kind"`
}

// FileReport handles POST /api/reports
// @Summary Report content
// @Tags reports
// @Accept json
// @Produce json
// @Param request body FileReportRequest true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /reports [post]
func (s *Server) FileReport(c *fiber.Ctx) error {
	var req FileReportRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	report, err := s.moderationService.FileReport(c.UserContext(), middleware.PrincipalFrom(c), service.FileReportInput{
		TargetKind:  models.ReportTargetKind(req.TargetKind),
		TargetID:    req.TargetID,
		TargetTitle: req.TargetTitle,
		Reason:      models.ReportReason(req.Reason),
		Details:     req.Details,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// GetDashboard handles GET /api/admin/dashboard
// @Summary Moderator console counts
// @Tags admin
// @Produce json
// @Success 200 {object} service.Dashboard
// @Security BearerAuth
// @Router /admin/dashboard [get]
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	d, err := s.consoleService.Dashboard(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(d)
}

// GetOpenReports handles GET /api/admin/reports
// @Summary Pending report queue
// @Tags admin
// @Produce json
// @Param target_kind query string false "post, article, product, comment or review"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Report
// @Security BearerAuth
// @Router /admin/reports [get]
func (s *Server) GetOpenReports(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	reports, err := s.consoleService.OpenReports(c.UserContext(),
		models.ReportTargetKind(c.Query("target_kind")), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reports)
}

// ResolveReport handles POST /api/admin/reports/:id/resolve
// @Summary Dismiss a report or remove its target
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param request body ResolveReportRequest true "Decision"
// @Success 200 {object} models.ReportResolution
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports/{id}/resolve [post]
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ResolveReportRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	res, err := s.moderationService.Resolve(c.UserContext(), middleware.PrincipalFrom(c), id, models.ResolveAction(req.Action))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// GetPendingProducts handles GET /api/admin/products/pending
// @Summary Unverified products, oldest first
// @Tags admin
// @Produce json
// @Success 200 {array} models.Product
// @Security BearerAuth
// @Router /admin/products/pending [get]
func (s *Server) GetPendingProducts(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	products, err := s.consoleService.PendingProducts(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(products)
}

// ApproveProduct handles POST /api/admin/products/:id/approve
// @Summary Verify a product
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param request body ApproveProductRequest false "Moderator note"
// @Success 200 {object} models.Product
// @Security BearerAuth
// @Router /admin/products/{id}/approve [post]
func (s *Server) ApproveProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ApproveProductRequest
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &req); err != nil {
			return nil
		}
	}

	product, err := s.productService.ApproveProduct(c.UserContext(), middleware.PrincipalFrom(c), id, req.Note)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(product)
}

// RejectProduct handles POST /api/admin/products/:id/reject
// @Summary Reject an unverified product
// @Description Deletes the product with its reviews, comments and reactions.
// @Tags admin
// @Param id path int true "Product ID"
// @Success 204
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/products/{id}/reject [post]
func (s *Server) RejectProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.productService.RejectProduct(c.UserContext(), middleware.PrincipalFrom(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetContentIndex handles GET /api/admin/content
// @Summary Every item of one kind with its counters
// @Tags admin
// @Produce json
// @Param kind query string true "post, article or product"
// @Success 200 {array} service.ContentEntry
// @Security BearerAuth
// @Router /admin/content [get]
func (s *Server) GetContentIndex(c *fiber.Ctx) error {
	kind, err := models.ParseItemKind(c.Query("kind", string(models.ItemKindPost)))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	page := parsePagination(c, 50)
	entries, err := s.consoleService.ContentIndex(c.UserContext(), kind, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(entries)
}

// RemoveContent handles DELETE /api/admin/items/:kind/:id
// @Summary Take down content without a report
// @Tags admin
// @Produce json
// @Param kind path string true "post, article, product, comment or review"
// @Param id path int true "Target ID"
// @Success 200 {object} models.ReportResolution
// @Security BearerAuth
// @Router /admin/items/{kind}/{id} [delete]
func (s *Server) RemoveContent(c *fiber.Ctx) error {
	kind := models.ReportTargetKind(c.Params("kind"))
	if !kind.Valid() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("invalid target kind"))
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	res, err := s.moderationService.RemoveContent(c.UserContext(), middleware.PrincipalFrom(c), kind, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// RunReconcile handles POST /api/admin/reconcile
// @Summary Repair counters from their ledgers
// @Tags admin
// @Accept json
// @Produce json
// @Param request body ReconcileRequest false "Single item"
// @Success 200 {object} service.SweepReport
// @Security BearerAuth
// @Router /admin/reconcile [post]
func (s *Server) RunReconcile(c *fiber.Ctx) error {
	var req ReconcileRequest
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &req); err != nil {
			return nil
		}
	}

	if req.Kind == "" {
		report, err := s.reconciler.Sweep(c.UserContext())
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.JSON(report)
	}

	ref := models.ItemRef{Kind: models.ItemKind(req.Kind), ID: req.ID}
	var (
		report = service.SweepReport{}
		err    error
	)
	if ref.Kind == models.ItemKindProduct {
		report.ProductsChecked = 1
		report.Corrections, err = s.reconciler.ReconcileProduct(c.UserContext(), ref.ID)
	} else {
		report.ItemsChecked = 1
		report.Corrections, err = s.reconciler.ReconcileItem(c.UserContext(), ref)
	}
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(report)
}
