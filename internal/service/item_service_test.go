package service

import (
	"context"
	"strings"
	"testing"

	"pariposhan/internal/featureflags"
	"pariposhan/internal/models"
	"pariposhan/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemService_CreateItem_Validation(t *testing.T) {
	t.Parallel()
	s := newServices(t, "")
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateItemInput
	}{
		{name: "product kind", input: CreateItemInput{Kind: models.ItemKindProduct, Title: "T", Body: "B"}},
		{name: "empty title", input: CreateItemInput{Kind: models.ItemKindPost, Body: "B"}},
		{name: "title too long", input: CreateItemInput{Kind: models.ItemKindPost, Title: strings.Repeat("x", 301), Body: "B"}},
		{name: "empty body", input: CreateItemInput{Kind: models.ItemKindArticle, Title: "T", Body: "  "}},
		{name: "body too long", input: CreateItemInput{Kind: models.ItemKindArticle, Title: "T", Body: strings.Repeat("x", 50001)}},
		{name: "bad image url", input: CreateItemInput{Kind: models.ItemKindPost, Title: "T", Body: "B", ImageURL: "::"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.items.CreateItem(ctx, member, tc.input)
			assertValidationError(t, err)
		})
	}
}

func TestItemService_ExpertBadge(t *testing.T) {
	ctx := context.Background()
	in := CreateItemInput{Kind: models.ItemKindArticle, Title: "Millets and diabetes", Body: "Glycemic index notes"}

	s := newServices(t, "")
	byMember, err := s.items.CreateItem(ctx, member, in)
	require.NoError(t, err)
	assert.False(t, byMember.IsExpert)
	byModerator, err := s.items.CreateItem(ctx, moderator, in)
	require.NoError(t, err)
	assert.True(t, byModerator.IsExpert)
	assert.Len(t, s.pub.ofType(notifications.EventItemCreated), 2)

	off := newServices(t, featureflags.ExpertBadges+"=off")
	plain, err := off.items.CreateItem(ctx, moderator, in)
	require.NoError(t, err)
	assert.False(t, plain.IsExpert)
}

func TestItemService_ListItems(t *testing.T) {
	s := newServices(t, "")
	ctx := context.Background()
	a := s.post(t, member, "Kambu koozh")
	b := s.post(t, member, "Thinai payasam")
	_, err := s.reactions.ToggleReaction(ctx, otherUser, a.Ref())
	require.NoError(t, err)

	newest, err := s.items.ListItems(ctx, otherUser, ListItemsInput{Kind: models.ItemKindPost})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, b.ID, newest[0].ID)

	top, err := s.items.ListItems(ctx, otherUser, ListItemsInput{Kind: models.ItemKindPost, Sort: models.SortTop})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, a.ID, top[0].ID)
	assert.True(t, top[0].Liked)
	assert.False(t, top[1].Liked)

	_, err = s.items.ListItems(ctx, otherUser, ListItemsInput{Sort: "hot"})
	assertValidationError(t, err)
}

func TestItemService_DeleteItem(t *testing.T) {
	s := newServices(t, "")
	ctx := context.Background()
	item := s.post(t, member, "Samai biryani")

	err := s.items.DeleteItem(ctx, otherUser, item.Ref())
	assertUnauthorizedError(t, err)

	require.NoError(t, s.items.DeleteItem(ctx, member, item.Ref()))
	require.NoError(t, s.items.DeleteItem(ctx, member, item.Ref()), "deleting a missing item is not an error")

	err = s.items.RemoveItem(ctx, item.Ref())
	assertCode(t, err, models.CodeNotFound)
}
