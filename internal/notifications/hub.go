package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"pariposhan/internal/observability"
	"pariposhan/internal/policy"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
	// Max topics one socket may hold
	maxTopicsPerClient = 64
)

var (
	errServerFull   = errors.New("server connection limit reached")
	errUserFull     = errors.New("user connection limit reached")
	errTooManyTopic = errors.New("topic limit reached")
	errForbidden    = errors.New("topic not available")
)

// Hub tracks sockets and the topics they subscribe to. Every socket is
// subscribed to its owner's private channel on registration.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	topics     map[string]map[*Client]struct{}
	totalConns int
	closed     bool
	log        *observability.WSLogger
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		conns:  make(map[uint]map[*Client]struct{}),
		topics: make(map[string]map[*Client]struct{}),
		log:    observability.NewWSLogger("aggregate hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "aggregate hub" }

// Register a connection for an authenticated principal. Returns the Client
// or an error if limits are exceeded.
func (h *Hub) Register(principal policy.Principal, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.totalConns >= maxTotalConns {
		return nil, errServerFull
	}

	m, ok := h.conns[principal.UserID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[principal.UserID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, errUserFull
	}

	client := NewClient(h, conn, principal)
	client.IncomingHandler = h.HandleIncoming
	m[client] = struct{}{}
	h.totalConns++
	h.subscribeLocked(client, UserChannel(principal.UserID))

	h.log.LogConnect(context.Background(), principal.UserID, client.ID)
	return client, nil
}

// UnregisterClient drops the client and all of its subscriptions.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	m, ok := h.conns[client.UserID()]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := m[client]; !exists {
		h.mu.Unlock()
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.UserID())
	}
	h.totalConns--
	for topic := range client.topics {
		h.unsubscribeLocked(client, topic)
	}
	// Closed under the lock so Deliver never sends on it.
	close(client.Send)
	h.mu.Unlock()

	h.log.LogDisconnect(context.Background(), client.UserID(), client.ID)
}

// Subscribe adds topic to the client after checking visibility.
func (h *Hub) Subscribe(client *Client, topic string) error {
	if !CanSubscribe(client.Principal, topic) {
		return errForbidden
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := client.topics[topic]; ok {
		return nil
	}
	if len(client.topics) >= maxTopicsPerClient {
		return errTooManyTopic
	}
	h.subscribeLocked(client, topic)
	h.log.LogSubscription(context.Background(), client.UserID(), topic, "subscribe")
	return nil
}

// Unsubscribe removes topic from the client. The private channel stays.
func (h *Hub) Unsubscribe(client *Client, topic string) {
	if topic == UserChannel(client.UserID()) {
		return
	}
	h.mu.Lock()
	h.unsubscribeLocked(client, topic)
	h.mu.Unlock()
	h.log.LogSubscription(context.Background(), client.UserID(), topic, "unsubscribe")
}

func (h *Hub) subscribeLocked(client *Client, topic string) {
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[client] = struct{}{}
	client.topics[topic] = struct{}{}
	observability.WebSocketSubscriptions.Inc()
}

func (h *Hub) unsubscribeLocked(client *Client, topic string) {
	if _, ok := client.topics[topic]; !ok {
		return
	}
	delete(client.topics, topic)
	if subs, ok := h.topics[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	observability.WebSocketSubscriptions.Dec()
}

// Deliver sends payload to every subscriber of topic.
func (h *Hub) Deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		c.TrySend(payload)
	}
}

// Subscribers returns the number of sockets listening on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// ConnectionCount returns the number of live sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

type clientFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// HandleIncoming applies a subscribe/unsubscribe frame and acknowledges it
// on the same socket.
func (h *Hub) HandleIncoming(client *Client, raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		client.sendEvent(NewEvent(EventError, "", map[string]string{"error": "invalid frame"}))
		return
	}

	switch frame.Type {
	case "subscribe":
		if err := h.Subscribe(client, frame.Topic); err != nil {
			client.sendEvent(NewEvent(EventError, frame.Topic, map[string]string{"error": err.Error()}))
			return
		}
		client.sendEvent(NewEvent(EventSubscribed, frame.Topic, nil))
	case "unsubscribe":
		h.Unsubscribe(client, frame.Topic)
		client.sendEvent(NewEvent(EventUnsubscribed, frame.Topic, nil))
	case "ping":
		client.sendEvent(NewEvent("pong", "", nil))
	default:
		client.sendEvent(NewEvent(EventError, "", map[string]string{"error": fmt.Sprintf("unknown frame type %q", frame.Type)}))
	}
}

// StartWiring connects the Notifier to this hub. With Redis the hub follows
// the pattern subscription; without it the notifier delivers directly.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	n.setLocal(h.Deliver)
	if !n.Distributed() {
		return nil
	}
	return n.StartPatternSubscriber(ctx, func(topic string, payload []byte) {
		if !ValidTopic(topic) {
			slog.Warn("dropping event on unknown topic", slog.String("topic", topic))
			return
		}
		h.Deliver(topic, payload)
	})
}

// Shutdown closes every client's send channel. Each WritePump then writes
// the close frame and drops its connection, which ends the ReadPump too.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	closing := 0
	for _, userConns := range h.conns {
		for client := range userConns {
			for topic := range client.topics {
				h.unsubscribeLocked(client, topic)
			}
			close(client.Send)
			closing++
		}
	}
	if closing > 0 {
		slog.Info("closing websocket clients", slog.Int("count", closing))
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.topics = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
