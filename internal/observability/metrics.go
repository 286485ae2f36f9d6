package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTransitions counts blood request state changes by target state.
	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeevandhara_request_transitions_total",
		Help: "Blood request lifecycle transitions by resulting status",
	}, []string{"status"})

	// RequestRejections counts lifecycle operations refused by a guard.
	RequestRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeevandhara_request_rejections_total",
		Help: "Blood request operations rejected by a guard",
	}, []string{"operation", "reason"})

	// LedgerOperations counts inventory ledger writes by kind and outcome.
	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeevandhara_ledger_operations_total",
		Help: "Inventory ledger operations by kind and outcome",
	}, []string{"operation", "outcome"})

	// LedgerUnits sums units moved through the ledger by direction and group.
	LedgerUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeevandhara_ledger_units_total",
		Help: "Blood units moved through the ledger",
	}, []string{"direction", "blood_group"})

	// NotificationsSent counts notification deliveries by event, channel and outcome.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeevandhara_notifications_total",
		Help: "Notification deliveries by event, channel and outcome",
	}, []string{"event", "channel", "outcome"})

	// NotificationQueueDepth is the number of tasks waiting in the dispatcher.
	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jeevandhara_notification_queue_depth",
		Help: "Notification tasks waiting to run",
	})

	// NotificationDrops counts tasks dropped by the dispatcher.
	NotificationDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeevandhara_notification_drops_total",
		Help: "Notification tasks dropped before running",
	}, []string{"reason"})

	// WebSocketBackpressureDrops counts socket messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeevandhara_websocket_backpressure_drops_total",
		Help: "WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
