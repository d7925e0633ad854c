// Package notifications fans committed mutations out to live subscribers,
// across instances via Redis pub/sub and to sockets via the Hub.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"pariposhan/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes events. With Redis every instance receives every
// event through its pattern subscriber; without Redis events go straight to
// the attached local sink.
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local func(topic string, payload []byte)
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Distributed reports whether events travel through Redis.
func (n *Notifier) Distributed() bool {
	return n != nil && n.rdb != nil
}

func (n *Notifier) setLocal(sink func(topic string, payload []byte)) {
	n.mu.Lock()
	n.local = sink
	n.mu.Unlock()
}

func (n *Notifier) deliverLocal(topic string, payload []byte) bool {
	n.mu.RLock()
	sink := n.local
	n.mu.RUnlock()
	if sink == nil {
		return false
	}
	sink(topic, payload)
	return true
}

// Publish sends event on topic. A Redis failure falls back to local
// delivery so this instance's subscribers still see the change.
func (n *Notifier) Publish(ctx context.Context, topic string, event Event) error {
	if n == nil {
		return nil
	}
	event.Topic = topic
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if n.rdb != nil {
		err := n.rdb.Publish(ctx, channelFor(topic), payload).Err()
		if err == nil {
			observability.EventsPublished.WithLabelValues(string(event.Type), "redis").Inc()
			return nil
		}
		if !n.deliverLocal(topic, payload) {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		observability.EventsPublished.WithLabelValues(string(event.Type), "local").Inc()
		return fmt.Errorf("publish %s (delivered locally): %w", topic, err)
	}

	if n.deliverLocal(topic, payload) {
		observability.EventsPublished.WithLabelValues(string(event.Type), "local").Inc()
	}
	return nil
}

// PublishUser sends event on the user's private channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event Event) error {
	return n.Publish(ctx, UserChannel(userID), event)
}

// StartPatternSubscriber subscribes to every aggregate topic and private
// channel and calls onMessage with the topic and raw payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(topic string, payload []byte),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, aggregateChannelPrefix+"*", userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in pattern subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(topicFor(msg.Channel), []byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}
