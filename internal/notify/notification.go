package notify

import "time"

// Priority tags a notification for display purposes. It never gates delivery.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Notification is a typed realtime event record. Data keys follow the
// external Spanish contract (pedido_id, mesa_id).
type Notification struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Priority  Priority       `json:"priority"`
}

// Socket event names shared by the bus and the realtime gateway.
const (
	EventNewOrder            = "new-order"
	EventOrderStateChanged   = "order-state-changed"
	EventOrderCancelled      = "order-cancelled"
	EventTableUpdated        = "table-updated"
	EventDashboardUpdate     = "dashboard-update"
	EventConnectionConfirmed = "connection-confirmed"
	EventConnectionState     = "connection-state"
	EventHistorySnapshot     = "history-snapshot"
	EventAuthorizationError  = "authorization-error"
)
