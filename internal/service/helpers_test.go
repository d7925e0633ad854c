package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pariposhan/internal/database"
	"pariposhan/internal/featureflags"
	"pariposhan/internal/models"
	"pariposhan/internal/notifications"
	"pariposhan/internal/policy"
	"pariposhan/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	member    = policy.Principal{UserID: 10, Name: "Meera", Role: policy.RoleMember}
	otherUser = policy.Principal{UserID: 11, Name: "Ravi", Role: policy.RoleMember}
	moderator = policy.Principal{UserID: 99, Name: "Dr. Iyer", Role: policy.RoleModerator}
	anonymous = policy.Principal{}
)

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthorized)
}

type published struct {
	topic  string
	userID uint
	event  notifications.Event
}

// recordingPublisher captures every event instead of delivering it.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, event: event})
	return p.err
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: notifications.UserChannel(userID), userID: userID, event: event})
	return p.err
}

func (p *recordingPublisher) ofType(eventType notifications.EventType) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

// setupTestDB returns a migrated in-memory sqlite database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// services wires every service over one sqlite database.
type services struct {
	db         *gorm.DB
	pub        *recordingPublisher
	flags      *featureflags.Manager
	items      *ItemService
	comments   *CommentService
	reactions  *ReactionService
	products   *ProductService
	moderation *ModerationService
	console    *ConsoleService
	reconciler *CounterReconciler
}

func newServices(t *testing.T, flagConfig string) *services {
	t.Helper()
	db := setupTestDB(t)
	pub := &recordingPublisher{}
	flags := featureflags.NewManager(flagConfig)

	itemRepo := repository.NewItemRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	productRepo := repository.NewProductRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	reportRepo := repository.NewReportRepository(db)

	s := &services{db: db, pub: pub, flags: flags}
	s.items = NewItemService(itemRepo, reactionRepo, flags, pub)
	s.comments = NewCommentService(commentRepo, productRepo, pub)
	s.reactions = NewReactionService(reactionRepo, productRepo, pub)
	s.products = NewProductService(productRepo, reviewRepo, reportRepo, reactionRepo, flags, pub)
	s.moderation = NewModerationService(reportRepo, s.items, s.comments, s.products, pub)
	s.console = NewConsoleService(itemRepo, productRepo, reportRepo)
	s.reconciler = NewCounterReconciler(repository.NewCounterRepository(db), 2, pub)
	return s
}

func (s *services) post(t *testing.T, author policy.Principal, title string) *models.Item {
	t.Helper()
	item, err := s.items.CreateItem(context.Background(), author, CreateItemInput{
		Kind:     models.ItemKindPost,
		Title:    title,
		Body:     "Soak the millets overnight.",
		Category: "Recipes",
	})
	require.NoError(t, err)
	return item
}

func (s *services) verifiedProduct(t *testing.T, name string) *models.Product {
	t.Helper()
	ctx := context.Background()
	product, err := s.products.SubmitProduct(ctx, member, SubmitProductInput{Name: name, Brand: "Annapurna", Category: "Cereal"})
	require.NoError(t, err)
	product, err = s.products.ApproveProduct(ctx, moderator, product.ID, "label checked")
	require.NoError(t, err)
	return product
}
