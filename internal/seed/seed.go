package seed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"pariposhan/internal/database"
	"pariposhan/internal/models"
	"pariposhan/internal/policy"
	"pariposhan/internal/repository"

	"gorm.io/gorm"
)

// Options configure one seeding run.
type Options struct {
	NumMembers  int
	NumItems    int
	NumProducts int
	// ArticleShare is the fraction of items generated as articles.
	ArticleShare float64
	// MaxLikes caps reactions per item; MaxComments caps root comments.
	MaxLikes    int
	MaxComments int
	MaxReviews  int
	NumReports  int
	// FirstMemberID keeps generated identities clear of real accounts.
	FirstMemberID uint
}

// Presets are named Options for cmd/seed.
var Presets = map[string]Options{
	"small": {
		NumMembers: 10, NumItems: 20, NumProducts: 4, ArticleShare: 0.25,
		MaxLikes: 5, MaxComments: 3, MaxReviews: 3, NumReports: 2,
	},
	"demo": {
		NumMembers: 50, NumItems: 200, NumProducts: 20, ArticleShare: 0.2,
		MaxLikes: 30, MaxComments: 6, MaxReviews: 10, NumReports: 15,
	},
	"stress": {
		NumMembers: 500, NumItems: 5000, NumProducts: 200, ArticleShare: 0.1,
		MaxLikes: 200, MaxComments: 10, MaxReviews: 40, NumReports: 200,
	},
}

// PresetNames lists the registered presets in a stable order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result counts what a run created.
type Result struct {
	Members   int
	Items     int
	Products  int
	Reactions int
	Comments  int
	Reviews   int
	Reports   int
}

// Seeder writes generated content through the repositories.
type Seeder struct {
	db        *gorm.DB
	factory   *Factory
	items     repository.ItemRepository
	products  repository.ProductRepository
	reviews   repository.ReviewRepository
	reactions repository.ReactionRepository
	comments  repository.CommentRepository
	reports   repository.ReportRepository
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, fopts FactoryOptions) *Seeder {
	return &Seeder{
		db:        db,
		factory:   NewFactory(fopts),
		items:     repository.NewItemRepository(db),
		products:  repository.NewProductRepository(db),
		reviews:   repository.NewReviewRepository(db),
		reactions: repository.NewReactionRepository(db),
		comments:  repository.NewCommentRepository(db),
		reports:   repository.NewReportRepository(db),
	}
}

// ClearAll removes every row the service owns.
func (s *Seeder) ClearAll() error {
	slog.Info("clearing engagement tables")
	if s.db.Dialector.Name() == "postgres" {
		return s.db.Exec(`TRUNCATE TABLE reports, comments, reactions, product_reviews,
			product_annotations, products, items RESTART IDENTITY CASCADE`).Error
	}
	for _, m := range database.PersistentModels() {
		// Each delete needs a fresh statement; a reused session keeps the first table.
		if err := s.db.Unscoped().Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

// ApplyPreset runs the named preset.
func (s *Seeder) ApplyPreset(ctx context.Context, name string) (*Result, error) {
	opts, ok := Presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (have %s)", name, strings.Join(PresetNames(), ", "))
	}
	return s.Seed(ctx, opts)
}

// Seed generates members, items, products and the engagement on them.
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	if opts.NumMembers <= 0 {
		return nil, fmt.Errorf("at least one member is required")
	}
	if opts.FirstMemberID == 0 {
		opts.FirstMemberID = 1000
	}
	res := &Result{}
	members := s.factory.Members(opts.NumMembers, opts.FirstMemberID)
	res.Members = len(members)

	items, err := s.seedItems(ctx, members, opts, res)
	if err != nil {
		return nil, err
	}
	products, err := s.seedProducts(ctx, members, opts, res)
	if err != nil {
		return nil, err
	}

	refs := make([]models.ItemRef, 0, len(items)+len(products))
	for _, it := range items {
		refs = append(refs, it.Ref())
	}
	for _, p := range products {
		refs = append(refs, p.Ref())
	}
	if err := s.seedEngagement(ctx, members, refs, opts, res); err != nil {
		return nil, err
	}
	if err := s.seedReports(ctx, members, items, opts, res); err != nil {
		return nil, err
	}

	slog.Info("seeding completed",
		"members", res.Members, "items", res.Items, "products", res.Products,
		"reactions", res.Reactions, "comments", res.Comments,
		"reviews", res.Reviews, "reports", res.Reports)
	return res, nil
}

func (s *Seeder) member(members []policy.Principal) policy.Principal {
	return members[s.factory.rng.Intn(len(members))]
}

func (s *Seeder) seedItems(ctx context.Context, members []policy.Principal, opts Options, res *Result) ([]*models.Item, error) {
	items := make([]*models.Item, 0, opts.NumItems)
	for i := 0; i < opts.NumItems; i++ {
		kind := models.ItemKindPost
		if s.factory.rng.Float64() < opts.ArticleShare {
			kind = models.ItemKindArticle
		}
		item := s.factory.BuildItem(s.member(members), kind)
		if err := s.items.Create(ctx, item); err != nil {
			return nil, fmt.Errorf("create item: %w", err)
		}
		items = append(items, item)
		if (i+1)%500 == 0 {
			slog.Info("items created", "count", i+1)
		}
	}
	res.Items = len(items)
	return items, nil
}

// seedProducts submits products and verifies roughly three in four of them,
// leaving the rest in the moderation queue.
func (s *Seeder) seedProducts(ctx context.Context, members []policy.Principal, opts Options, res *Result) ([]*models.Product, error) {
	var moderators []policy.Principal
	for _, m := range members {
		if policy.CanModerate(m) {
			moderators = append(moderators, m)
		}
	}

	verified := make([]*models.Product, 0, opts.NumProducts)
	for i := 0; i < opts.NumProducts; i++ {
		product := s.factory.BuildProduct(s.member(members))
		if err := s.products.Create(ctx, product); err != nil {
			return nil, fmt.Errorf("create product: %w", err)
		}
		res.Products++
		if len(moderators) == 0 || s.factory.rng.Intn(4) == 0 {
			continue
		}
		mod := moderators[s.factory.rng.Intn(len(moderators))]
		if _, err := s.products.Verify(ctx, product.ID, mod.UserID, "Label checked"); err != nil {
			return nil, fmt.Errorf("verify product %d: %w", product.ID, err)
		}
		verified = append(verified, product)

		for _, reviewer := range s.sample(members, opts.MaxReviews) {
			if err := s.reviews.Create(ctx, s.factory.BuildReview(reviewer, product.ID)); err != nil {
				return nil, fmt.Errorf("create review: %w", err)
			}
			res.Reviews++
		}
	}
	return verified, nil
}

func (s *Seeder) seedEngagement(ctx context.Context, members []policy.Principal, refs []models.ItemRef, opts Options, res *Result) error {
	for _, ref := range refs {
		for _, liker := range s.sample(members, opts.MaxLikes) {
			if _, err := s.reactions.Toggle(ctx, ref, liker.UserID); err != nil {
				return fmt.Errorf("react on %s: %w", ref, err)
			}
			res.Reactions++
		}

		roots := 0
		if opts.MaxComments > 0 {
			roots = s.factory.rng.Intn(opts.MaxComments + 1)
		}
		for i := 0; i < roots; i++ {
			root := s.factory.BuildComment(s.member(members), ref, nil)
			if err := s.comments.Create(ctx, root); err != nil {
				return fmt.Errorf("comment on %s: %w", ref, err)
			}
			res.Comments++
			for j := s.factory.rng.Intn(3); j > 0; j-- {
				if err := s.comments.Create(ctx, s.factory.BuildComment(s.member(members), ref, root)); err != nil {
					return fmt.Errorf("reply on %s: %w", ref, err)
				}
				res.Comments++
			}
		}
	}
	return nil
}

func (s *Seeder) seedReports(ctx context.Context, members []policy.Principal, items []*models.Item, opts Options, res *Result) error {
	if len(items) == 0 {
		return nil
	}
	for i := 0; i < opts.NumReports; i++ {
		target := items[s.factory.rng.Intn(len(items))]
		if err := s.reports.Create(ctx, s.factory.BuildReport(s.member(members), target)); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		res.Reports++
	}
	return nil
}

// sample picks up to limit distinct members.
func (s *Seeder) sample(members []policy.Principal, limit int) []policy.Principal {
	if limit <= 0 {
		return nil
	}
	n := s.factory.rng.Intn(limit + 1)
	if n > len(members) {
		n = len(members)
	}
	picked := make([]policy.Principal, 0, n)
	for _, idx := range s.factory.rng.Perm(len(members))[:n] {
		picked = append(picked, members[idx])
	}
	return picked
}
