package server

import (
	"fmt"
	"net/http"
	"testing"

	"pariposhan/internal/models"
	"pariposhan/internal/policy"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) createPost(t *testing.T, author policy.Principal, title string) models.Item {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/api/items", author, CreateItemRequest{
		Kind:     "post",
		Title:    title,
		Body:     "Soak overnight, then pressure cook.",
		Category: "millets",
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	return decode[models.Item](t, body)
}

func TestCreateItem(t *testing.T) {
	ts := newTestServer(t, "", nil)

	item := ts.createPost(t, meera, "Foxtail millet upma")
	assert.Equal(t, models.ItemKindPost, item.Kind)
	assert.Equal(t, meera.UserID, item.AuthorID)
	assert.Equal(t, "Meera", item.AuthorName)
	assert.Zero(t, item.LikeCount)

	tests := []struct {
		name string
		req  CreateItemRequest
	}{
		{"product kind", CreateItemRequest{Kind: "product", Title: "x", Body: "y"}},
		{"missing title", CreateItemRequest{Kind: "post", Body: "y"}},
		{"bad category", CreateItemRequest{Kind: "article", Title: "x", Body: "y", Category: "Not A Slug!"}},
		{"bad image url", CreateItemRequest{Kind: "post", Title: "x", Body: "y", ImageURL: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do(t, http.MethodPost, "/api/items", meera, tt.req)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Contains(t, string(body), models.CodeValidation)
		})
	}
}

func TestGetItem(t *testing.T) {
	ts := newTestServer(t, "", nil)
	item := ts.createPost(t, meera, "Ragi dosa")

	status, body := ts.do(t, http.MethodGet, fmt.Sprintf("/api/items/posts/%d", item.ID), policy.Principal{}, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ragi dosa", decode[models.Item](t, body).Title)

	status, _ = ts.do(t, http.MethodGet, "/api/items/post/9999", policy.Principal{}, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodGet, "/api/items/recipe/1", policy.Principal{}, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodGet, "/api/items/post/abc", policy.Principal{}, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestToggleReaction_RoundTrip(t *testing.T) {
	ts := newTestServer(t, "", nil)
	item := ts.createPost(t, meera, "Kodo millet pulao")
	path := fmt.Sprintf("/api/items/post/%d/reactions/toggle", item.ID)

	status, body := ts.do(t, http.MethodPost, path, ravi, nil)
	require.Equal(t, fiber.StatusOK, status, string(body))
	state := decode[models.ReactionState](t, body)
	assert.True(t, state.Liked)
	assert.Equal(t, 1, state.LikeCount)

	// Viewer-specific liked flag on reads
	_, body = ts.do(t, http.MethodGet, fmt.Sprintf("/api/items/post/%d", item.ID), ravi, nil)
	assert.True(t, decode[models.Item](t, body).Liked)
	_, body = ts.do(t, http.MethodGet, fmt.Sprintf("/api/items/post/%d", item.ID), meera, nil)
	assert.False(t, decode[models.Item](t, body).Liked)

	_, body = ts.do(t, http.MethodGet, "/api/items?kind=post", ravi, nil)
	listed := decode[[]models.Item](t, body)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Liked)

	status, body = ts.do(t, http.MethodPost, path, ravi, nil)
	require.Equal(t, fiber.StatusOK, status)
	state = decode[models.ReactionState](t, body)
	assert.False(t, state.Liked)
	assert.Equal(t, 0, state.LikeCount)

	status, _ = ts.do(t, http.MethodPost, "/api/items/post/4242/reactions/toggle", ravi, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestListItems_TopSortAndBadInput(t *testing.T) {
	ts := newTestServer(t, "", nil)
	first := ts.createPost(t, meera, "First")
	second := ts.createPost(t, meera, "Second")
	ts.do(t, http.MethodPost, fmt.Sprintf("/api/items/post/%d/reactions/toggle", first.ID), ravi, nil)

	_, body := ts.do(t, http.MethodGet, "/api/items?sort=top", policy.Principal{}, nil)
	top := decode[[]models.Item](t, body)
	require.Len(t, top, 2)
	assert.Equal(t, first.ID, top[0].ID)

	_, body = ts.do(t, http.MethodGet, "/api/items", policy.Principal{}, nil)
	newest := decode[[]models.Item](t, body)
	require.Len(t, newest, 2)
	assert.Equal(t, second.ID, newest[0].ID)

	status, _ := ts.do(t, http.MethodGet, "/api/items?sort=hot", policy.Principal{}, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = ts.do(t, http.MethodGet, "/api/items?kind=product", policy.Principal{}, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestDeleteItem(t *testing.T) {
	ts := newTestServer(t, "", nil)
	item := ts.createPost(t, meera, "Jowar roti")
	path := fmt.Sprintf("/api/items/post/%d", item.ID)

	status, _ := ts.do(t, http.MethodDelete, path, ravi, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodDelete, path, meera, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = ts.do(t, http.MethodGet, path, policy.Principal{}, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	// Already gone is still a success
	status, _ = ts.do(t, http.MethodDelete, path, meera, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestDeleteItem_ProductNeedsModerator(t *testing.T) {
	ts := newTestServer(t, "", nil)
	product := ts.submitProduct(t, meera, "Little millet")
	path := fmt.Sprintf("/api/items/product/%d", product.ID)

	status, _ := ts.do(t, http.MethodDelete, path, meera, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodDelete, path, moderator, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = ts.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", product.ID), moderator, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
