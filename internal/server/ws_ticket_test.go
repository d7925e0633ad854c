package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStore_Local(t *testing.T) {
	store := newTicketStore(nil)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ticket, err := store.Issue(ctx, meera)
	require.NoError(t, err)

	p, err := store.Redeem(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, meera, p)

	_, err = store.Redeem(ctx, ticket)
	assert.ErrorIs(t, err, errTicketInvalid, "tickets are single-use")

	stale, err := store.Issue(ctx, ravi)
	require.NoError(t, err)
	now = now.Add(wsTicketTTL + time.Second)
	_, err = store.Redeem(ctx, stale)
	assert.ErrorIs(t, err, errTicketInvalid)
}

func TestTicketStore_Redis(t *testing.T) {
	mr, rdb := newMiniredis(t)
	store := newTicketStore(rdb)
	ctx := context.Background()

	ticket, err := store.Issue(ctx, moderator)
	require.NoError(t, err)
	assert.True(t, mr.Exists(ticketKey(ticket)))
	assert.Equal(t, wsTicketTTL, mr.TTL(ticketKey(ticket)))

	p, err := store.Redeem(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, moderator, p)
	assert.False(t, mr.Exists(ticketKey(ticket)), "redeem deletes the ticket")

	_, err = store.Redeem(ctx, ticket)
	assert.ErrorIs(t, err, errTicketInvalid)

	require.NoError(t, mr.Set(ticketKey("garbage"), "{not json"))
	_, err = store.Redeem(ctx, "garbage")
	assert.ErrorIs(t, err, errTicketInvalid)
}

func TestWebsocketRoutes(t *testing.T) {
	_, rdb := newMiniredis(t)
	ts := newTestServer(t, "", rdb)

	status, _ := ts.do(t, http.MethodPost, "/api/ws/ticket", meera, nil)
	require.Equal(t, fiber.StatusOK, status)

	t.Run("ticket authenticates the upgrade path", func(t *testing.T) {
		_, body := ts.do(t, http.MethodPost, "/api/ws/ticket", meera, nil)
		ticket := decode[map[string]any](t, body)["ticket"].(string)

		// Not an upgrade, but auth has to pass before the handler can refuse it.
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/ws?ticket=%s", ticket), nil)
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

		// Second use fails.
		req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/ws?ticket=%s", ticket), nil)
		resp, err = ts.app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown ticket on the ws path is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/ws?ticket=nope", nil)
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("ticket on a REST route is ignored and stays valid", func(t *testing.T) {
		_, body := ts.do(t, http.MethodPost, "/api/ws/ticket", meera, nil)
		ticket := decode[map[string]any](t, body)["ticket"].(string)

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/ws/ticket?ticket=%s", ticket), nil)
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/ws?ticket=%s", ticket), nil)
		resp, err = ts.app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	})

	t.Run("anonymous callers get no ticket", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil)
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}
