package service

import (
	"context"
	"time"

	"pariposhan/internal/cache"
	"pariposhan/internal/models"
	"pariposhan/internal/repository"
)

// Dashboard is the moderator console's headline counts.
type Dashboard struct {
	PendingProducts  int64     `json:"pending_products"`
	OpenReports      int64     `json:"open_reports"`
	Posts            int64     `json:"posts"`
	Articles         int64     `json:"articles"`
	VerifiedProducts int64     `json:"verified_products"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// ContentEntry is one row of the console's content index.
type ContentEntry struct {
	Item         models.ItemRef `json:"item"`
	Title        string         `json:"title"`
	AuthorID     uint           `json:"author_id"`
	LikeCount    int            `json:"like_count"`
	CommentCount int            `json:"comment_count"`
	Verified     *bool          `json:"verified,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ConsoleService composes the moderator queues from the stores.
type ConsoleService struct {
	itemRepo    repository.ItemRepository
	productRepo repository.ProductRepository
	reportRepo  repository.ReportRepository
}

func NewConsoleService(
	itemRepo repository.ItemRepository,
	productRepo repository.ProductRepository,
	reportRepo repository.ReportRepository,
) *ConsoleService {
	return &ConsoleService{itemRepo: itemRepo, productRepo: productRepo, reportRepo: reportRepo}
}

// Dashboard returns the headline counts, cached briefly.
func (s *ConsoleService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	err := cache.Aside(ctx, cache.DashboardKey, &d, cache.DashboardTTL, func() error {
		verified, pending := true, false
		var err error
		if d.PendingProducts, err = s.productRepo.Count(ctx, &pending); err != nil {
			return err
		}
		if d.VerifiedProducts, err = s.productRepo.Count(ctx, &verified); err != nil {
			return err
		}
		if d.OpenReports, err = s.reportRepo.CountPending(ctx); err != nil {
			return err
		}
		if d.Posts, err = s.itemRepo.Count(ctx, models.ItemKindPost); err != nil {
			return err
		}
		if d.Articles, err = s.itemRepo.Count(ctx, models.ItemKindArticle); err != nil {
			return err
		}
		d.GeneratedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// PendingProducts lists unverified submissions oldest first.
func (s *ConsoleService) PendingProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	limit, offset = clampPage(limit, offset)
	pending := false
	return s.productRepo.List(ctx, repository.ProductFilter{
		Verified:    &pending,
		OldestFirst: true,
		Limit:       limit,
		Offset:      offset,
	})
}

// OpenReports lists the pending report queue.
func (s *ConsoleService) OpenReports(ctx context.Context, kind models.ReportTargetKind, limit, offset int) ([]*models.Report, error) {
	if kind != "" && !kind.Valid() {
		return nil, models.NewValidationError("invalid target kind")
	}
	limit, offset = clampPage(limit, offset)
	return s.reportRepo.ListPending(ctx, repository.ReportFilter{TargetKind: kind, Limit: limit, Offset: offset})
}

// ContentIndex lists every item of one kind, products in any state.
func (s *ConsoleService) ContentIndex(ctx context.Context, kind models.ItemKind, limit, offset int) ([]ContentEntry, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError("invalid item kind")
	}
	limit, offset = clampPage(limit, offset)

	if kind == models.ItemKindProduct {
		products, err := s.productRepo.List(ctx, repository.ProductFilter{Limit: limit, Offset: offset})
		if err != nil {
			return nil, err
		}
		out := make([]ContentEntry, 0, len(products))
		for _, p := range products {
			verified := p.IsVerified
			out = append(out, ContentEntry{
				Item:         p.Ref(),
				Title:        p.Name,
				AuthorID:     p.SubmittedBy,
				LikeCount:    p.LikeCount,
				CommentCount: p.CommentCount,
				Verified:     &verified,
				CreatedAt:    p.CreatedAt,
			})
		}
		return out, nil
	}

	items, err := s.itemRepo.List(ctx, repository.ItemFilter{Kind: kind, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	out := make([]ContentEntry, 0, len(items))
	for _, it := range items {
		out = append(out, ContentEntry{
			Item:         it.Ref(),
			Title:        it.Title,
			AuthorID:     it.AuthorID,
			LikeCount:    it.LikeCount,
			CommentCount: it.CommentCount,
			CreatedAt:    it.CreatedAt,
		})
	}
	return out, nil
}
