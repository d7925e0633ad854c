package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pariposhan/internal/models"
	"pariposhan/internal/notifications"
	"pariposhan/internal/observability"
	"pariposhan/internal/policy"
	"pariposhan/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxReportDetailsLen = 2000
	maxTargetTitleLen   = 300
)

// ModerationService runs report intake and resolution. Removal of a target
// goes through the owning service so its counters and events stay right.
type ModerationService struct {
	reportRepo repository.ReportRepository
	items      *ItemService
	comments   *CommentService
	products   *ProductService
	pub        Publisher
}

type FileReportInput struct {
	TargetKind  models.ReportTargetKind
	TargetID    uint
	TargetTitle string
	Reason      models.ReportReason
	Details     string
}

func NewModerationService(
	reportRepo repository.ReportRepository,
	items *ItemService,
	comments *CommentService,
	products *ProductService,
	pub Publisher,
) *ModerationService {
	return &ModerationService{
		reportRepo: reportRepo,
		items:      items,
		comments:   comments,
		products:   products,
		pub:        orNop(pub),
	}
}

// FileReport queues a pending report. The target must exist; its title is
// snapshotted when the caller does not supply one.
func (s *ModerationService) FileReport(ctx context.Context, actor policy.Principal, in FileReportInput) (*models.Report, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	target := fmt.Sprintf("%s:%d", in.TargetKind, in.TargetID)
	report, err := s.fileReport(ctx, actor, in)
	if err != nil {
		return nil, failed(ctx, s.pub, actor, "file_report", target, err)
	}
	return report, nil
}

func (s *ModerationService) fileReport(ctx context.Context, actor policy.Principal, in FileReportInput) (*models.Report, error) {
	if !in.TargetKind.Valid() {
		return nil, models.NewValidationError("invalid target kind")
	}
	if in.TargetID == 0 {
		return nil, models.NewValidationError("target id is required")
	}
	if !in.Reason.Valid() {
		return nil, models.NewValidationError("invalid reason")
	}
	details := strings.TrimSpace(in.Details)
	if len(details) > maxReportDetailsLen {
		return nil, models.NewValidationError("Details too long (max 2000 characters)")
	}

	title, err := s.targetTitle(ctx, in.TargetKind, in.TargetID)
	if err != nil {
		return nil, err
	}
	if supplied := strings.TrimSpace(in.TargetTitle); supplied != "" {
		title = supplied
	}

	report := &models.Report{
		TargetKind:  in.TargetKind,
		TargetID:    in.TargetID,
		TargetTitle: snapshot(title, maxTargetTitleLen),
		Reason:      in.Reason,
		Details:     details,
		ReporterID:  actor.UserID,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, err
	}

	observability.ReportsFiled.WithLabelValues(string(in.TargetKind), string(in.Reason)).Inc()
	publish(ctx, s.pub, notifications.ModerationTopic, notifications.EventReportFiled, report)
	return report, nil
}

// targetTitle loads the display title of a report target, failing with
// NOT_FOUND when it is gone.
func (s *ModerationService) targetTitle(ctx context.Context, kind models.ReportTargetKind, id uint) (string, error) {
	switch kind {
	case models.ReportTargetPost, models.ReportTargetArticle:
		itemKind, _ := kind.ItemKind()
		item, err := s.items.itemRepo.GetByID(ctx, models.ItemRef{Kind: itemKind, ID: id})
		if err != nil {
			return "", err
		}
		return item.Title, nil
	case models.ReportTargetProduct:
		product, err := s.products.productRepo.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return product.Name, nil
	case models.ReportTargetComment:
		comment, err := s.comments.commentRepo.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return "Comment: " + comment.Body, nil
	case models.ReportTargetReview:
		review, err := s.products.reviewRepo.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		if product, err := s.products.productRepo.GetByID(ctx, review.ProductID); err == nil {
			return "Review of " + product.Name, nil
		}
		return fmt.Sprintf("Review #%d", review.ID), nil
	}
	return "", models.NewValidationError("invalid target kind")
}

// Resolve applies a moderator decision. dismiss deletes the report (and,
// for a held review, approves it). remove_target deletes the target, treating
// an already missing target as success, then clears every report on it.
func (s *ModerationService) Resolve(ctx context.Context, moderator policy.Principal, reportID uint, action models.ResolveAction) (res *models.ReportResolution, err error) {
	ctx, span := observability.StartSpan(ctx, "moderation.resolve",
		attribute.Int64("report.id", int64(reportID)),
		attribute.String("report.action", string(action)))
	defer func() { observability.EndSpan(span, err) }()

	if err := requireModerator(moderator); err != nil {
		return nil, failed(ctx, s.pub, moderator, "resolve_report", "", err)
	}
	if !action.Valid() {
		return nil, failed(ctx, s.pub, moderator, "resolve_report", "", models.NewValidationError("action must be dismiss or remove_target"))
	}

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, failed(ctx, s.pub, moderator, "resolve_report", "", err)
	}
	target := fmt.Sprintf("%s:%d", report.TargetKind, report.TargetID)

	res = &models.ReportResolution{ReportID: report.ID, Action: action}
	switch action {
	case models.ResolveDismiss:
		if report.TargetKind == models.ReportTargetReview {
			if _, err := s.products.ApproveReview(ctx, report.TargetID); err != nil && !models.IsNotFound(err) {
				return nil, failed(ctx, s.pub, moderator, "resolve_report", target, err)
			}
		}
		if err := s.reportRepo.Delete(ctx, report.ID); err != nil {
			return nil, failed(ctx, s.pub, moderator, "resolve_report", target, err)
		}
		res.ReportsCleared = 1

	case models.ResolveRemoveTarget:
		removed, err := s.removeTarget(ctx, report.TargetKind, report.TargetID)
		if err != nil {
			return nil, failed(ctx, s.pub, moderator, "resolve_report", target, err)
		}
		res.TargetRemoved = removed
		cleared, err := s.reportRepo.DeleteForTarget(ctx, report.TargetKind, report.TargetID)
		if err != nil {
			return nil, failed(ctx, s.pub, moderator, "resolve_report", target, err)
		}
		res.ReportsCleared = cleared
	}

	observability.ReportsResolved.WithLabelValues(string(report.TargetKind), string(action)).Inc()
	slog.InfoContext(ctx, "report resolved",
		slog.Uint64("report_id", uint64(report.ID)),
		slog.String("action", string(action)),
		slog.String("target", target),
		slog.Bool("target_removed", res.TargetRemoved),
		slog.Int64("reports_cleared", res.ReportsCleared))
	publish(ctx, s.pub, notifications.ModerationTopic, notifications.EventReportResolved, res)
	return res, nil
}

// RemoveContent takes down any reportable target directly and clears its
// reports. A missing target is not an error.
func (s *ModerationService) RemoveContent(ctx context.Context, moderator policy.Principal, kind models.ReportTargetKind, id uint) (*models.ReportResolution, error) {
	if err := requireModerator(moderator); err != nil {
		return nil, failed(ctx, s.pub, moderator, "remove_content", "", err)
	}
	if !kind.Valid() || id == 0 {
		return nil, models.NewValidationError("invalid target")
	}
	removed, err := s.removeTarget(ctx, kind, id)
	if err != nil {
		return nil, failed(ctx, s.pub, moderator, "remove_content", fmt.Sprintf("%s:%d", kind, id), err)
	}
	cleared, err := s.reportRepo.DeleteForTarget(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return &models.ReportResolution{Action: models.ResolveRemoveTarget, TargetRemoved: removed, ReportsCleared: cleared}, nil
}

// removeTarget reports whether something was deleted. NOT_FOUND is benign.
func (s *ModerationService) removeTarget(ctx context.Context, kind models.ReportTargetKind, id uint) (bool, error) {
	var err error
	switch kind {
	case models.ReportTargetPost, models.ReportTargetArticle:
		itemKind, _ := kind.ItemKind()
		err = s.items.RemoveItem(ctx, models.ItemRef{Kind: itemKind, ID: id})
	case models.ReportTargetProduct:
		err = s.products.RemoveProduct(ctx, id)
	case models.ReportTargetComment:
		_, err = s.comments.RemoveComment(ctx, id)
	case models.ReportTargetReview:
		_, err = s.products.RemoveReview(ctx, id)
	default:
		return false, models.NewValidationError("invalid target kind")
	}
	if models.IsNotFound(err) {
		slog.WarnContext(ctx, "moderation target already gone",
			slog.String("target_kind", string(kind)),
			slog.Uint64("target_id", uint64(id)))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
