package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pariposhan/internal/models"
	"pariposhan/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reactionRepoStub is a stub for repository.ReactionRepository.
type reactionRepoStub struct {
	toggleFn   func(context.Context, models.ItemRef, uint) (models.ReactionState, error)
	existsFn   func(context.Context, models.ItemRef, uint) (bool, error)
	likedIDsFn func(context.Context, models.ItemKind, uint, []uint) ([]uint, error)
}

func (s *reactionRepoStub) Toggle(ctx context.Context, ref models.ItemRef, userID uint) (models.ReactionState, error) {
	return s.toggleFn(ctx, ref, userID)
}
func (s *reactionRepoStub) Exists(ctx context.Context, ref models.ItemRef, userID uint) (bool, error) {
	return s.existsFn(ctx, ref, userID)
}
func (s *reactionRepoStub) LikedIDs(ctx context.Context, kind models.ItemKind, userID uint, ids []uint) ([]uint, error) {
	return s.likedIDsFn(ctx, kind, userID, ids)
}

func noopReactionRepo() *reactionRepoStub {
	return &reactionRepoStub{
		toggleFn: func(_ context.Context, ref models.ItemRef, _ uint) (models.ReactionState, error) {
			return models.ReactionState{Item: ref}, nil
		},
		existsFn:   func(_ context.Context, _ models.ItemRef, _ uint) (bool, error) { return false, nil },
		likedIDsFn: func(_ context.Context, _ models.ItemKind, _ uint, _ []uint) ([]uint, error) { return nil, nil },
	}
}

func TestReactionService_Toggle_RejectsBadInput(t *testing.T) {
	svc := NewReactionService(noopReactionRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.ToggleReaction(ctx, anonymous, models.ItemRef{Kind: models.ItemKindPost, ID: 1})
	assertCode(t, err, models.CodeUnauthenticated)

	_, err = svc.ToggleReaction(ctx, member, models.ItemRef{Kind: "video", ID: 1})
	assertValidationError(t, err)

	_, err = svc.ToggleReaction(ctx, member, models.ItemRef{Kind: models.ItemKindPost})
	assertValidationError(t, err)
}

func TestReactionService_Toggle_PublishesCommittedState(t *testing.T) {
	pub := &recordingPublisher{}
	repo := noopReactionRepo()
	repo.toggleFn = func(_ context.Context, ref models.ItemRef, _ uint) (models.ReactionState, error) {
		return models.ReactionState{Item: ref, Liked: true, LikeCount: 4}, nil
	}
	svc := NewReactionService(repo, nil, pub)
	ref := models.ItemRef{Kind: models.ItemKindProduct, ID: 8}

	state, err := svc.ToggleReaction(context.Background(), member, ref)
	require.NoError(t, err)
	assert.True(t, state.Liked)

	events := pub.ofType(notifications.EventReactionToggled)
	require.Len(t, events, 2)
	assert.Equal(t, notifications.ItemTopic(ref), events[0].topic)
	assert.Equal(t, member.UserID, events[1].userID)
	assert.Equal(t, state, events[1].event.Payload)
}

func TestReactionService_Toggle_PublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	svc := NewReactionService(noopReactionRepo(), nil, pub)

	_, err := svc.ToggleReaction(context.Background(), member, models.ItemRef{Kind: models.ItemKindPost, ID: 1})
	require.NoError(t, err)
}

func TestReactionService_Toggle_MissingTargetNotifiesActor(t *testing.T) {
	pub := &recordingPublisher{}
	repo := noopReactionRepo()
	repo.toggleFn = func(_ context.Context, ref models.ItemRef, _ uint) (models.ReactionState, error) {
		return models.ReactionState{}, models.NewNotFoundError("post", ref.ID)
	}
	svc := NewReactionService(repo, nil, pub)

	_, err := svc.ToggleReaction(context.Background(), member, models.ItemRef{Kind: models.ItemKindPost, ID: 404})
	assertCode(t, err, models.CodeNotFound)
	assert.Len(t, pub.ofType(notifications.EventMutationFailed), 1)
	assert.Empty(t, pub.ofType(notifications.EventReactionToggled))
}

func TestReactionService_LikedSet_Anonymous(t *testing.T) {
	repo := noopReactionRepo()
	repo.likedIDsFn = func(_ context.Context, _ models.ItemKind, _ uint, _ []uint) ([]uint, error) {
		t.Fatal("anonymous viewers must not hit the ledger")
		return nil, nil
	}
	svc := NewReactionService(repo, nil, nil)

	set, err := svc.LikedSet(context.Background(), anonymous, models.ItemKindPost, []uint{1, 2})
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestReactionService_ConcurrentTogglesMatchLedger(t *testing.T) {
	s := newServices(t, "")
	ctx := context.Background()
	item := s.post(t, member, "Bajra roti")

	const users = 8
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(uid uint) {
			defer wg.Done()
			actor := member
			actor.UserID = uid
			_, err := s.reactions.ToggleReaction(ctx, actor, item.Ref())
			assert.NoError(t, err)
		}(uint(100 + i))
	}
	wg.Wait()

	got, err := s.items.GetItem(ctx, member, item.Ref())
	require.NoError(t, err)
	assert.Equal(t, users, got.LikeCount)

	var ledger int64
	require.NoError(t, s.db.Model(&models.Reaction{}).Where("item_kind = ? AND item_id = ?", item.Kind, item.ID).Count(&ledger).Error)
	assert.Equal(t, int64(users), ledger)
}

func TestReactionService_ToggleTwiceRestores(t *testing.T) {
	s := newServices(t, "")
	ctx := context.Background()
	item := s.post(t, member, "Foxtail upma")

	first, err := s.reactions.ToggleReaction(ctx, otherUser, item.Ref())
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, 1, first.LikeCount)

	liked, err := s.reactions.IsLiked(ctx, otherUser, item.Ref())
	require.NoError(t, err)
	assert.True(t, liked)

	second, err := s.reactions.ToggleReaction(ctx, otherUser, item.Ref())
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Equal(t, 0, second.LikeCount)
}
