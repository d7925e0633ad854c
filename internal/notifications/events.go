package notifications

import (
	"encoding/json"
	"time"
)

// EventType names a fan-out event.
type EventType string

const (
	EventReactionToggled    EventType = "reaction_toggled"
	EventCommentCreated     EventType = "comment_created"
	EventCommentDeleted     EventType = "comment_deleted"
	EventItemCreated        EventType = "item_created"
	EventItemRemoved        EventType = "item_removed"
	EventReportFiled        EventType = "report_filed"
	EventReportResolved     EventType = "report_resolved"
	EventProductSubmitted   EventType = "product_submitted"
	EventProductVerified    EventType = "product_verified"
	EventProductRejected    EventType = "product_rejected"
	EventProductRemoved     EventType = "product_removed"
	EventReviewSubmitted    EventType = "review_submitted"
	EventReviewRemoved      EventType = "review_removed"
	EventCountersReconciled EventType = "counters_reconciled"
	EventMutationFailed     EventType = "mutation_failed"

	// Control frames sent to a single socket.
	EventSubscribed      EventType = "subscribed"
	EventUnsubscribed    EventType = "unsubscribed"
	EventError           EventType = "error"
	EventMessagesDropped EventType = "messages_dropped"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	Type    EventType `json:"type"`
	Topic   string    `json:"topic,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// NewEvent stamps an event for topic.
func NewEvent(eventType EventType, topic string, payload any) Event {
	return Event{Type: eventType, Topic: topic, Payload: payload, At: time.Now().UTC()}
}

// Encode renders the event as a websocket text frame.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// MutationFailure is the payload of a mutation_failed event.
type MutationFailure struct {
	Operation string `json:"operation"`
	Target    string `json:"target,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
