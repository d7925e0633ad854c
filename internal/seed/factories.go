// Package seed provides helpers to create demo and test data for the
// engagement database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"pariposhan/internal/models"
	"pariposhan/internal/policy"

	"github.com/brianvoe/gofakeit/v6"
)

// FactoryOptions tune generated content.
type FactoryOptions struct {
	// MaxDays bounds how far back created_at is spread.
	MaxDays int
	// Seed makes output reproducible when non-zero.
	Seed int64
}

// Factory builds domain entities without persisting them. The Seeder
// writes them through the repositories so counters stay consistent.
type Factory struct {
	opts  FactoryOptions
	rng   *rand.Rand
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewFactory creates a Factory.
func NewFactory(opts FactoryOptions) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Factory{
		opts: opts,
		//nolint:gosec // Weak random number generator is fine for seeding
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(seed),
		now:   nowUTC,
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

var (
	seedCategories = []string{"millets", "flours", "snacks", "breakfast", "pulses", "recipes", "nutrition"}
	grains         = []string{"ragi", "jowar", "bajra", "foxtail millet", "kodo millet", "little millet", "barnyard millet", "proso millet"}
	dishes         = []string{"dosa", "upma", "khichdi", "roti", "porridge", "laddu", "pongal", "idli", "pulao", "kheer"}
)

// Members builds n community members. The first member of every ten is a
// moderator so generated content carries a realistic share of expert posts.
func (f *Factory) Members(n int, firstID uint) []policy.Principal {
	members := make([]policy.Principal, 0, n)
	for i := 0; i < n; i++ {
		role := policy.RoleMember
		if i%10 == 0 {
			role = policy.RoleModerator
		}
		first := f.faker.FirstName()
		last := f.faker.LastName()
		members = append(members, policy.Principal{
			UserID: firstID + uint(i),
			Name:   fmt.Sprintf("%s %s", first, last),
			Email:  fmt.Sprintf("%s.%s%d@example.com", first, last, i),
			Role:   role,
		})
	}
	return members
}

// createdAt spreads timestamps over the last MaxDays.
func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.rng.Intn(f.opts.MaxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return f.now().Add(-back)
}

func (f *Factory) pick(from []string) string {
	return from[f.rng.Intn(len(from))]
}

// BuildItem constructs a post or article authored by author.
func (f *Factory) BuildItem(author policy.Principal, kind models.ItemKind, overrides ...func(*models.Item)) *models.Item {
	grain := f.pick(grains)
	dish := f.pick(dishes)

	item := &models.Item{
		Kind:       kind,
		AuthorID:   author.UserID,
		AuthorName: author.DisplayName(),
		Category:   f.pick(seedCategories),
		IsExpert:   policy.IsExpert(author),
		CreatedAt:  f.createdAt(),
	}
	switch kind {
	case models.ItemKindArticle:
		item.Title = fmt.Sprintf("Why %s belongs in your %s", grain, dish)
		item.Body = f.faker.Paragraph(3, 4, 12, "\n\n")
		item.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", f.faker.UUID())
	default:
		item.Title = fmt.Sprintf("%s %s, %s", grain, dish, f.faker.Word())
		item.Body = f.faker.Paragraph(1, 3, 10, "\n")
		if f.rng.Float32() < 0.4 {
			item.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
		}
	}
	item.UpdatedAt = item.CreatedAt

	for _, override := range overrides {
		override(item)
	}
	return item
}

// BuildProduct constructs an unverified community submission.
func (f *Factory) BuildProduct(submitter policy.Principal, overrides ...func(*models.Product)) *models.Product {
	grain := f.pick(grains)
	product := &models.Product{
		Name:        fmt.Sprintf("%s %s mix", grain, f.pick(dishes)),
		Brand:       f.faker.Company(),
		Description: f.faker.Sentence(14),
		Category:    f.pick(seedCategories[:5]),
		SubmittedBy: submitter.UserID,
		CreatedAt:   f.createdAt(),
	}
	for _, override := range overrides {
		override(product)
	}
	return product
}

// BuildReview constructs an approved review. Ratings lean positive.
func (f *Factory) BuildReview(reviewer policy.Principal, productID uint) *models.ProductReview {
	weights := []int{models.MinRating, 2, 3, 4, 4, 4, models.MaxRating, models.MaxRating}
	return &models.ProductReview{
		ProductID: productID,
		UserID:    reviewer.UserID,
		UserName:  reviewer.DisplayName(),
		Rating:    weights[f.rng.Intn(len(weights))],
		Comment:   f.faker.Sentence(10),
		Status:    models.ReviewStatusApproved,
		CreatedAt: f.createdAt(),
	}
}

// BuildComment constructs a comment on ref. A non-nil parent makes it a reply.
func (f *Factory) BuildComment(author policy.Principal, ref models.ItemRef, parent *models.Comment) *models.Comment {
	c := &models.Comment{
		ItemKind:   ref.Kind,
		ItemID:     ref.ID,
		AuthorID:   author.UserID,
		AuthorName: author.DisplayName(),
		Body:       f.faker.Sentence(8),
		CreatedAt:  f.createdAt(),
	}
	if parent != nil {
		id := parent.ID
		c.ParentID = &id
		if c.CreatedAt.Before(parent.CreatedAt) {
			c.CreatedAt = parent.CreatedAt.Add(time.Duration(1+f.rng.Intn(120)) * time.Minute)
		}
	}
	return c
}

var seedReasons = []models.ReportReason{
	models.ReasonUnsafePractice,
	models.ReasonMisinformation,
	models.ReasonSpam,
	models.ReasonOther,
}

// BuildReport constructs a pending report against an item.
func (f *Factory) BuildReport(reporter policy.Principal, item *models.Item) *models.Report {
	kind := models.ReportTargetPost
	if item.Kind == models.ItemKindArticle {
		kind = models.ReportTargetArticle
	}
	return &models.Report{
		TargetKind:  kind,
		TargetID:    item.ID,
		TargetTitle: item.Title,
		Reason:      seedReasons[f.rng.Intn(len(seedReasons))],
		Details:     f.faker.Sentence(6),
		ReporterID:  reporter.UserID,
		Status:      models.ReportStatusPending,
		CreatedAt:   f.createdAt(),
	}
}
