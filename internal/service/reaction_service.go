package service

import (
	"context"
	"log/slog"

	"pariposhan/internal/models"
	"pariposhan/internal/notifications"
	"pariposhan/internal/observability"
	"pariposhan/internal/policy"
	"pariposhan/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ReactionService is the like ledger entry point.
type ReactionService struct {
	reactions repository.ReactionRepository
	products  repository.ProductRepository
	pub       Publisher
}

func NewReactionService(reactions repository.ReactionRepository, products repository.ProductRepository, pub Publisher) *ReactionService {
	return &ReactionService{reactions: reactions, products: products, pub: orNop(pub)}
}

// ToggleReaction likes the item if the actor has not, and unlikes it
// otherwise. The returned state is the committed one.
func (s *ReactionService) ToggleReaction(ctx context.Context, actor policy.Principal, ref models.ItemRef) (state models.ReactionState, err error) {
	ctx, span := observability.StartSpan(ctx, "reaction.toggle",
		attribute.String("item.kind", string(ref.Kind)),
		attribute.Int64("item.id", int64(ref.ID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return models.ReactionState{}, err
	}
	if !ref.Kind.Valid() || ref.ID == 0 {
		return models.ReactionState{}, failed(ctx, s.pub, actor, "toggle_reaction", ref.String(),
			models.NewValidationError("invalid item reference"))
	}

	if err := checkProductVisible(ctx, s.products, actor, ref); err != nil {
		return models.ReactionState{}, failed(ctx, s.pub, actor, "toggle_reaction", ref.String(), err)
	}

	state, err = s.reactions.Toggle(ctx, ref, actor.UserID)
	if err != nil {
		if models.IsNotFound(err) {
			slog.WarnContext(ctx, "reaction target missing", slog.String("item", ref.String()))
		}
		return models.ReactionState{}, failed(ctx, s.pub, actor, "toggle_reaction", ref.String(), err)
	}

	result := "unliked"
	if state.Liked {
		result = "liked"
	}
	observability.ReactionsToggled.WithLabelValues(string(ref.Kind), result).Inc()

	publish(ctx, s.pub, notifications.ItemTopic(ref), notifications.EventReactionToggled, map[string]any{
		"item":       ref,
		"like_count": state.LikeCount,
	})
	if err := s.pub.PublishUser(ctx, actor.UserID, notifications.NewEvent(
		notifications.EventReactionToggled, notifications.UserChannel(actor.UserID), state)); err != nil {
		slog.WarnContext(ctx, "reaction feedback not delivered", slog.String("error", err.Error()))
	}
	return state, nil
}

// IsLiked reports whether the viewer has reacted to ref.
func (s *ReactionService) IsLiked(ctx context.Context, viewer policy.Principal, ref models.ItemRef) (bool, error) {
	if !viewer.Authenticated() {
		return false, nil
	}
	return s.reactions.Exists(ctx, ref, viewer.UserID)
}

// LikedSet returns which of ids the viewer has reacted to.
func (s *ReactionService) LikedSet(ctx context.Context, viewer policy.Principal, kind models.ItemKind, ids []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(ids))
	if !viewer.Authenticated() || len(ids) == 0 {
		return out, nil
	}
	liked, err := s.reactions.LikedIDs(ctx, kind, viewer.UserID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}
