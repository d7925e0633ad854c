package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"pariposhan/internal/featureflags"
	"pariposhan/internal/models"
	"pariposhan/internal/notifications"
	"pariposhan/internal/policy"
	"pariposhan/internal/repository"
)

const (
	maxTitleLen    = 300
	maxBodyLen     = 50000
	maxCategoryLen = 64
)

// ItemService is the catalog of posts and articles.
type ItemService struct {
	itemRepo     repository.ItemRepository
	reactionRepo repository.ReactionRepository
	flags        *featureflags.Manager
	pub          Publisher
}

type CreateItemInput struct {
	Kind     models.ItemKind
	Title    string
	Body     string
	Category string
	ImageURL string
}

type ListItemsInput struct {
	Kind     models.ItemKind
	Category string
	AuthorID uint
	Sort     models.ItemSort
	Limit    int
	Offset   int
}

func NewItemService(
	itemRepo repository.ItemRepository,
	reactionRepo repository.ReactionRepository,
	flags *featureflags.Manager,
	pub Publisher,
) *ItemService {
	return &ItemService{
		itemRepo:     itemRepo,
		reactionRepo: reactionRepo,
		flags:        flags,
		pub:          orNop(pub),
	}
}

func (s *ItemService) CreateItem(ctx context.Context, actor policy.Principal, in CreateItemInput) (*models.Item, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	item, err := s.createItem(ctx, actor, in)
	if err != nil {
		return nil, failed(ctx, s.pub, actor, "create_item", string(in.Kind), err)
	}
	return item, nil
}

func (s *ItemService) createItem(ctx context.Context, actor policy.Principal, in CreateItemInput) (*models.Item, error) {
	if !in.Kind.Editorial() {
		return nil, models.NewValidationError("kind must be post or article")
	}
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if body == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(body) > maxBodyLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if len(category) > maxCategoryLen {
		return nil, models.NewValidationError("Category too long")
	}
	if in.ImageURL != "" {
		if _, err := url.ParseRequestURI(in.ImageURL); err != nil {
			return nil, models.NewValidationError("image_url must be a valid URL")
		}
	}

	item := &models.Item{
		Kind:       in.Kind,
		AuthorID:   actor.UserID,
		AuthorName: actor.DisplayName(),
		Title:      title,
		Body:       body,
		Category:   category,
		ImageURL:   in.ImageURL,
		IsExpert:   s.flags.Enabled(featureflags.ExpertBadges, actor.UserID) && policy.IsExpert(actor),
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}

	publish(ctx, s.pub, notifications.FeedTopic(item.Kind), notifications.EventItemCreated, item)
	return item, nil
}

// GetItem returns the item with Liked set for the viewer.
func (s *ItemService) GetItem(ctx context.Context, viewer policy.Principal, ref models.ItemRef) (*models.Item, error) {
	if !ref.Kind.Editorial() {
		return nil, models.NewValidationError("kind must be post or article")
	}
	item, err := s.itemRepo.GetByID(ctx, ref)
	if err != nil {
		return nil, err
	}
	if viewer.Authenticated() {
		liked, err := s.reactionRepo.Exists(ctx, ref, viewer.UserID)
		if err != nil {
			return nil, err
		}
		item.Liked = liked
	}
	return item, nil
}

func (s *ItemService) ListItems(ctx context.Context, viewer policy.Principal, in ListItemsInput) ([]*models.Item, error) {
	if in.Kind != "" && !in.Kind.Editorial() {
		return nil, models.NewValidationError("kind must be post or article")
	}
	switch in.Sort {
	case "", models.SortNewest, models.SortTop:
	default:
		return nil, models.NewValidationError("sort must be new or top")
	}
	limit, offset := clampPage(in.Limit, in.Offset)

	items, err := s.itemRepo.List(ctx, repository.ItemFilter{
		Kind:     in.Kind,
		Category: strings.ToLower(strings.TrimSpace(in.Category)),
		AuthorID: in.AuthorID,
		Sort:     in.Sort,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(ctx, viewer, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ItemService) markLiked(ctx context.Context, viewer policy.Principal, items []*models.Item) error {
	if !viewer.Authenticated() || len(items) == 0 {
		return nil
	}
	idsByKind := make(map[models.ItemKind][]uint)
	for _, it := range items {
		idsByKind[it.Kind] = append(idsByKind[it.Kind], it.ID)
	}
	liked := make(map[models.ItemRef]bool)
	for kind, ids := range idsByKind {
		got, err := s.reactionRepo.LikedIDs(ctx, kind, viewer.UserID, ids)
		if err != nil {
			return err
		}
		for _, id := range got {
			liked[models.ItemRef{Kind: kind, ID: id}] = true
		}
	}
	for _, it := range items {
		it.Liked = liked[it.Ref()]
	}
	return nil
}

// DeleteItem removes an item on behalf of its author or a moderator. An item
// that is already gone counts as deleted.
func (s *ItemService) DeleteItem(ctx context.Context, actor policy.Principal, ref models.ItemRef) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	item, err := s.itemRepo.GetByID(ctx, ref)
	if models.IsNotFound(err) {
		slog.WarnContext(ctx, "delete of missing item", slog.String("item", ref.String()))
		return nil
	}
	if err != nil {
		return failed(ctx, s.pub, actor, "delete_item", ref.String(), err)
	}
	if !policy.CanModify(actor, item.AuthorID) {
		return failed(ctx, s.pub, actor, "delete_item", ref.String(),
			models.NewUnauthorizedError("You can only delete your own content"))
	}
	err = s.RemoveItem(ctx, ref)
	if models.IsNotFound(err) {
		slog.WarnContext(ctx, "item vanished before delete", slog.String("item", ref.String()))
		return nil
	}
	if err != nil {
		return failed(ctx, s.pub, actor, "delete_item", ref.String(), err)
	}
	return nil
}

// RemoveItem deletes without an ownership check. NOT_FOUND is returned to
// callers that need to know.
func (s *ItemService) RemoveItem(ctx context.Context, ref models.ItemRef) error {
	if err := s.itemRepo.Delete(ctx, ref); err != nil {
		return err
	}
	payload := map[string]any{"item": ref}
	publish(ctx, s.pub, notifications.FeedTopic(ref.Kind), notifications.EventItemRemoved, payload)
	publish(ctx, s.pub, notifications.ItemTopic(ref), notifications.EventItemRemoved, payload)
	return nil
}
