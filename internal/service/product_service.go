package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"pariposhan/internal/featureflags"
	"pariposhan/internal/models"
	"pariposhan/internal/notifications"
	"pariposhan/internal/observability"
	"pariposhan/internal/policy"
	"pariposhan/internal/repository"
)

const (
	maxProductNameLen   = 200
	maxReviewCommentLen = 5000
	maxAnnotationLen    = 2000
)

// ProductService handles submissions, reviews and verification.
type ProductService struct {
	productRepo  repository.ProductRepository
	reviewRepo   repository.ReviewRepository
	reportRepo   repository.ReportRepository
	reactionRepo repository.ReactionRepository
	flags        *featureflags.Manager
	pub          Publisher
}

type SubmitProductInput struct {
	Name        string
	Brand       string
	Description string
	Category    string
	ImageURL    string
}

type ListProductsInput struct {
	Verified *bool
	Category string
	Query    string
	Limit    int
	Offset   int
}

type SubmitReviewInput struct {
	ProductID uint
	Rating    int
	Comment   string
}

func NewProductService(
	productRepo repository.ProductRepository,
	reviewRepo repository.ReviewRepository,
	reportRepo repository.ReportRepository,
	reactionRepo repository.ReactionRepository,
	flags *featureflags.Manager,
	pub Publisher,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		reviewRepo:   reviewRepo,
		reportRepo:   reportRepo,
		reactionRepo: reactionRepo,
		flags:        flags,
		pub:          orNop(pub),
	}
}

// SubmitProduct stores an unverified product for moderator review.
func (s *ProductService) SubmitProduct(ctx context.Context, actor policy.Principal, in SubmitProductInput) (*models.Product, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, failed(ctx, s.pub, actor, "submit_product", "", models.NewValidationError("Name is required"))
	case len(name) > maxProductNameLen:
		return nil, failed(ctx, s.pub, actor, "submit_product", "", models.NewValidationError("Name too long (max 200 characters)"))
	case len(in.Description) > maxBodyLen:
		return nil, failed(ctx, s.pub, actor, "submit_product", "", models.NewValidationError("Description too long"))
	}
	if in.ImageURL != "" {
		if _, err := url.ParseRequestURI(in.ImageURL); err != nil {
			return nil, failed(ctx, s.pub, actor, "submit_product", "", models.NewValidationError("image_url must be a valid URL"))
		}
	}

	product := &models.Product{
		Name:        name,
		Brand:       strings.TrimSpace(in.Brand),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		ImageURL:    in.ImageURL,
		SubmittedBy: actor.UserID,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, failed(ctx, s.pub, actor, "submit_product", "", err)
	}

	observability.ProductTransitions.WithLabelValues("submitted").Inc()
	publish(ctx, s.pub, notifications.ModerationTopic, notifications.EventProductSubmitted, product)
	return product, nil
}

// GetProduct returns a product. Unverified products are visible only to
// their submitter and to moderators.
func (s *ProductService) GetProduct(ctx context.Context, viewer policy.Principal, id uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !productVisible(viewer, product) {
		return nil, models.NewNotFoundError("Product", id)
	}
	if viewer.Authenticated() {
		liked, err := s.reactionRepo.Exists(ctx, product.Ref(), viewer.UserID)
		if err != nil {
			return nil, err
		}
		product.Liked = liked
	}
	return product, nil
}

// ListProducts lists products. Only moderators may see unverified ones.
func (s *ProductService) ListProducts(ctx context.Context, viewer policy.Principal, in ListProductsInput) ([]*models.Product, error) {
	verified := in.Verified
	if !policy.CanModerate(viewer) {
		t := true
		verified = &t
	}
	limit, offset := clampPage(in.Limit, in.Offset)
	products, err := s.productRepo.List(ctx, repository.ProductFilter{
		Verified: verified,
		Category: strings.ToLower(strings.TrimSpace(in.Category)),
		Query:    in.Query,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}

	if viewer.Authenticated() && len(products) > 0 {
		ids := make([]uint, 0, len(products))
		for _, p := range products {
			ids = append(ids, p.ID)
		}
		liked, err := s.reactionRepo.LikedIDs(ctx, models.ItemKindProduct, viewer.UserID, ids)
		if err != nil {
			return nil, err
		}
		set := make(map[uint]bool, len(liked))
		for _, id := range liked {
			set[id] = true
		}
		for _, p := range products {
			p.Liked = set[p.ID]
		}
	}
	return products, nil
}

// SubmitReview records a rating. With review pre-moderation on, the review
// is held pending behind a system report until a moderator resolves it.
func (s *ProductService) SubmitReview(ctx context.Context, actor policy.Principal, in SubmitReviewInput) (*models.ProductReview, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	target := models.ItemRef{Kind: models.ItemKindProduct, ID: in.ProductID}.String()
	review, err := s.submitReview(ctx, actor, in)
	if err != nil {
		return nil, failed(ctx, s.pub, actor, "submit_review", target, err)
	}
	return review, nil
}

func (s *ProductService) submitReview(ctx context.Context, actor policy.Principal, in SubmitReviewInput) (*models.ProductReview, error) {
	if in.Rating < models.MinRating || in.Rating > models.MaxRating {
		return nil, models.NewValidationError("Rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if len(comment) > maxReviewCommentLen {
		return nil, models.NewValidationError("Review too long (max 5000 characters)")
	}
	product, err := s.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !productVisible(actor, product) {
		return nil, models.NewNotFoundError("Product", in.ProductID)
	}

	status := models.ReviewStatusApproved
	if s.flags.Enabled(featureflags.ReviewPremoderation, actor.UserID) {
		status = models.ReviewStatusPending
	}
	review := &models.ProductReview{
		ProductID: product.ID,
		UserID:    actor.UserID,
		UserName:  actor.DisplayName(),
		Rating:    in.Rating,
		Comment:   comment,
		Status:    status,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}
	observability.ReviewsSubmitted.WithLabelValues(string(status)).Inc()

	if status == models.ReviewStatusPending {
		report := &models.Report{
			TargetKind:  models.ReportTargetReview,
			TargetID:    review.ID,
			TargetTitle: snapshot(fmt.Sprintf("Review of %s", product.Name), 300),
			Reason:      models.ReasonOther,
			Details:     "Awaiting pre-moderation",
		}
		if err := s.reportRepo.Create(ctx, report); err != nil {
			return nil, fmt.Errorf("queue review %d for moderation: %w", review.ID, err)
		}
		publish(ctx, s.pub, notifications.ModerationTopic, notifications.EventReportFiled, report)
		return review, nil
	}

	s.publishAggregate(ctx, product.ID, notifications.EventReviewSubmitted)
	return review, nil
}

// publishAggregate announces a product's current rating aggregate.
func (s *ProductService) publishAggregate(ctx context.Context, productID uint, eventType notifications.EventType) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		slog.WarnContext(ctx, "aggregate reload failed", slog.Uint64("product_id", uint64(productID)), slog.String("error", err.Error()))
		return
	}
	publish(ctx, s.pub, notifications.ItemTopic(product.Ref()), eventType, map[string]any{
		"product_id":     product.ID,
		"average_rating": product.AverageRating,
		"total_reviews":  product.RatingCount,
	})
}

func (s *ProductService) ListReviews(ctx context.Context, productID uint, limit, offset int) ([]*models.ProductReview, error) {
	limit, offset = clampPage(limit, offset)
	return s.reviewRepo.ListApproved(ctx, productID, limit, offset)
}

// ApproveProduct verifies a product and records the moderator's note.
// Approving a verified product changes nothing.
func (s *ProductService) ApproveProduct(ctx context.Context, moderator policy.Principal, productID uint, note string) (*models.Product, error) {
	if err := requireModerator(moderator); err != nil {
		return nil, failed(ctx, s.pub, moderator, "approve_product", "", err)
	}
	note = strings.TrimSpace(note)
	if len(note) > maxAnnotationLen {
		return nil, failed(ctx, s.pub, moderator, "approve_product", "", models.NewValidationError("Note too long"))
	}
	changed, err := s.productRepo.Verify(ctx, productID, moderator.UserID, note)
	if err != nil {
		return nil, failed(ctx, s.pub, moderator, "approve_product", "", err)
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if changed {
		observability.ProductTransitions.WithLabelValues("verified").Inc()
		slog.InfoContext(ctx, "product verified",
			slog.Uint64("product_id", uint64(productID)),
			slog.Uint64("moderator_id", uint64(moderator.UserID)))
		publish(ctx, s.pub, notifications.ProductsTopic, notifications.EventProductVerified, product)
		publish(ctx, s.pub, notifications.ModerationTopic, notifications.EventProductVerified, map[string]uint{"product_id": productID})
	}
	return product, nil
}

// RejectProduct deletes a product that is still unverified, along with any
// reports filed against it.
func (s *ProductService) RejectProduct(ctx context.Context, moderator policy.Principal, productID uint) error {
	if err := requireModerator(moderator); err != nil {
		return failed(ctx, s.pub, moderator, "reject_product", "", err)
	}
	if err := s.productRepo.DeleteUnverified(ctx, productID); err != nil {
		return failed(ctx, s.pub, moderator, "reject_product", "", err)
	}
	if _, err := s.reportRepo.DeleteForTarget(ctx, models.ReportTargetProduct, productID); err != nil {
		slog.WarnContext(ctx, "reports for rejected product not cleared",
			slog.Uint64("product_id", uint64(productID)), slog.String("error", err.Error()))
	}
	observability.ProductTransitions.WithLabelValues("rejected").Inc()
	slog.InfoContext(ctx, "product rejected",
		slog.Uint64("product_id", uint64(productID)),
		slog.Uint64("moderator_id", uint64(moderator.UserID)))
	publish(ctx, s.pub, notifications.ModerationTopic, notifications.EventProductRejected, map[string]uint{"product_id": productID})
	return nil
}

// RemoveProduct deletes a product in any state.
func (s *ProductService) RemoveProduct(ctx context.Context, productID uint) error {
	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return err
	}
	observability.ProductTransitions.WithLabelValues("removed").Inc()
	payload := map[string]uint{"product_id": productID}
	publish(ctx, s.pub, notifications.ProductsTopic, notifications.EventProductRemoved, payload)
	publish(ctx, s.pub, notifications.ItemTopic(models.ItemRef{Kind: models.ItemKindProduct, ID: productID}), notifications.EventProductRemoved, payload)
	return nil
}

// ApproveReview counts a pending review toward its product's aggregate.
func (s *ProductService) ApproveReview(ctx context.Context, reviewID uint) (*models.ProductReview, error) {
	review, err := s.reviewRepo.Approve(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	observability.ReviewsSubmitted.WithLabelValues("approved_after_moderation").Inc()
	s.publishAggregate(ctx, review.ProductID, notifications.EventReviewSubmitted)
	return review, nil
}

// RemoveReview deletes a review and withdraws its rating if it was counted.
func (s *ProductService) RemoveReview(ctx context.Context, reviewID uint) (*models.ProductReview, error) {
	review, err := s.reviewRepo.Delete(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	s.publishAggregate(ctx, review.ProductID, notifications.EventReviewRemoved)
	return review, nil
}

// productVisible reports whether viewer may see or engage with product.
// Unverified products belong to their submitter and the moderators.
func productVisible(viewer policy.Principal, product *models.Product) bool {
	return product.IsVerified || policy.CanModify(viewer, product.SubmittedBy)
}

// checkProductVisible answers NOT_FOUND for product refs the actor cannot
// see. Other kinds and a nil lookup pass through.
func checkProductVisible(ctx context.Context, products repository.ProductRepository, actor policy.Principal, ref models.ItemRef) error {
	if products == nil || ref.Kind != models.ItemKindProduct {
		return nil
	}
	product, err := products.GetByID(ctx, ref.ID)
	if err != nil {
		return err
	}
	if !productVisible(actor, product) {
		return models.NewNotFoundError("Product", ref.ID)
	}
	return nil
}
