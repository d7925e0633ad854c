package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReactionsToggled counts reaction toggles by item kind and resulting state.
	ReactionsToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pariposhan_reactions_toggled_total",
		Help: "Reaction toggles by item kind and result",
	}, []string{"item_kind", "result"})

	// CommentsChanged counts comment creations and deletions.
	CommentsChanged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pariposhan_comments_total",
		Help: "Comments posted or deleted by item kind",
	}, []string{"item_kind", "operation"})

	// ReportsFiled counts filed reports by target kind and reason.
	ReportsFiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pariposhan_reports_filed_total",
		Help: "Moderation reports filed",
	}, []string{"target_kind", "reason"})

	// ReportsResolved counts resolved reports by action.
	ReportsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pariposhan_reports_resolved_total",
		Help: "Moderation reports resolved",
	}, []string{"target_kind", "action"})

	// ReviewsSubmitted counts product reviews by initial status.
	ReviewsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pariposhan_reviews_submitted_total",
		Help: "Product reviews submitted",
	}, []string{"status"})

	// ProductTransitions counts product lifecycle changes.
	ProductTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pariposhan_product_transitions_total",
		Help: "Product submissions, approvals and rejections",
	}, []string{"transition"})

	// CounterDriftCorrections counts cached counters rewritten by the reconciler.
	CounterDriftCorrections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pariposhan_counter_drift_corrections_total",
		Help: "Denormalized counters corrected from the ledger",
	}, []string{"counter"})

	// EventsPublished counts fan-out events by type and transport.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pariposhan_events_published_total",
		Help: "Fan-out events published",
	}, []string{"event_type", "transport"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pariposhan_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// WebSocketSubscriptions is the number of live topic subscriptions.
	WebSocketSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pariposhan_websocket_subscriptions",
		Help: "Live topic subscriptions across all sockets",
	})
)
