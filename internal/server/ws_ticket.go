package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"pariposhan/internal/policy"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const wsTicketTTL = 30 * time.Second

var errTicketInvalid = errors.New("invalid or expired ticket")

type localTicket struct {
	principal policy.Principal
	expiresAt time.Time
}

// ticketStore holds single-use websocket tickets. Redis makes a ticket
// redeemable on any node; without it tickets live in this process.
type ticketStore struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[string]localTicket
	now   func() time.Time
}

func newTicketStore(rdb *redis.Client) *ticketStore {
	return &ticketStore{rdb: rdb, local: make(map[string]localTicket), now: time.Now}
}

func ticketKey(ticket string) string {
	return fmt.Sprintf("ws_ticket:%s", ticket)
}

// Issue mints a ticket for p.
func (t *ticketStore) Issue(ctx context.Context, p policy.Principal) (string, error) {
	ticket := uuid.NewString()

	if t.rdb != nil {
		raw, err := json.Marshal(p)
		if err != nil {
			return "", err
		}
		if err := t.rdb.Set(ctx, ticketKey(ticket), raw, wsTicketTTL).Err(); err != nil {
			return "", fmt.Errorf("store ticket: %w", err)
		}
		return ticket, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for k, v := range t.local {
		if now.After(v.expiresAt) {
			delete(t.local, k)
		}
	}
	t.local[ticket] = localTicket{principal: p, expiresAt: now.Add(wsTicketTTL)}
	return ticket, nil
}

// Redeem consumes a ticket atomically and returns the principal it was
// issued to.
func (t *ticketStore) Redeem(ctx context.Context, ticket string) (policy.Principal, error) {
	if t.rdb != nil {
		raw, err := t.rdb.GetDel(ctx, ticketKey(ticket)).Bytes()
		if err != nil {
			return policy.Principal{}, errTicketInvalid
		}
		var p policy.Principal
		if err := json.Unmarshal(raw, &p); err != nil || !p.Authenticated() {
			return policy.Principal{}, errTicketInvalid
		}
		return p, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.local[ticket]
	delete(t.local, ticket)
	if !ok || t.now().After(entry.expiresAt) {
		return policy.Principal{}, errTicketInvalid
	}
	return entry.principal, nil
}
