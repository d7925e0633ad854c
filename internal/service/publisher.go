// Package service holds the mutation subsystems and their read-side
// compositions. Services validate input, call repositories and publish
// fan-out events after commit.
package service

import (
	"context"
	"errors"
	"log/slog"

	"pariposhan/internal/models"
	"pariposhan/internal/notifications"
	"pariposhan/internal/policy"
)

// Publisher delivers committed changes to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, topic string, event notifications.Event) error
	PublishUser(ctx context.Context, userID uint, event notifications.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, notifications.Event) error   { return nil }
func (nopPublisher) PublishUser(context.Context, uint, notifications.Event) error { return nil }

func orNop(pub Publisher) Publisher {
	if pub == nil {
		return nopPublisher{}
	}
	return pub
}

// publish fans out one event. Delivery failures are logged; the mutation has
// already committed.
func publish(ctx context.Context, pub Publisher, topic string, eventType notifications.EventType, payload any) {
	if err := pub.Publish(ctx, topic, notifications.NewEvent(eventType, topic, payload)); err != nil {
		slog.WarnContext(ctx, "event publish failed",
			slog.String("topic", topic),
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
	}
}

// failed reports err once on the actor's private channel and returns it
// unchanged for the synchronous caller.
func failed(ctx context.Context, pub Publisher, actor policy.Principal, operation, target string, err error) error {
	if err == nil || !actor.Authenticated() {
		return err
	}
	code := models.ErrorCode(err)
	msg := "internal error"
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	} else {
		code = models.CodeInternal
	}
	event := notifications.NewEvent(notifications.EventMutationFailed, notifications.UserChannel(actor.UserID), notifications.MutationFailure{
		Operation: operation,
		Target:    target,
		Code:      code,
		Message:   msg,
	})
	if pubErr := pub.PublishUser(ctx, actor.UserID, event); pubErr != nil {
		slog.WarnContext(ctx, "failure notice not delivered",
			slog.String("operation", operation),
			slog.String("error", pubErr.Error()))
	}
	return err
}

func requireActor(actor policy.Principal) error {
	if !actor.Authenticated() {
		return models.NewUnauthenticatedError("Authentication required")
	}
	return nil
}

func requireModerator(actor policy.Principal) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !policy.CanModerate(actor) {
		return models.NewUnauthorizedError("Moderator role required")
	}
	return nil
}

// clampPage applies default and maximum page sizes.
func clampPage(limit, offset int) (int, int) {
	const defaultLimit, maxLimit = 20, 100
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// snapshot trims s to at most n runes for denormalized display fields.
func snapshot(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
