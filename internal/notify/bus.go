package notify

import (
	"fmt"
	"log/slog"
	"time"
)

// Broadcaster delivers an event to every connection in a room. Delivery is
// best-effort and must not block the caller.
type Broadcaster interface {
	Broadcast(room Room, event string, payload any)
}

// Bus turns domain events into notifications, records them in history, and
// fans them out to role-scoped rooms.
type Bus struct {
	history *History
	hub     Broadcaster
	log     *slog.Logger
}

// NewBus returns a bus writing to history and broadcasting through hub.
func NewBus(history *History, hub Broadcaster, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{history: history, hub: hub, log: log}
}

// OrderCreated announces a new order to kitchen and floor staff, and the
// admin dashboard.
func (b *Bus) OrderCreated(orderID, tableID string) {
	n := Notification{
		Type:     EventNewOrder,
		Message:  fmt.Sprintf("Nuevo pedido %s en mesa %s", orderID, tableID),
		Data:     map[string]any{"pedido_id": orderID, "mesa_id": tableID},
		Priority: PriorityHigh,
	}
	b.history.Append(n)
	b.hub.Broadcast(RoomCooks, EventNewOrder, n)
	b.hub.Broadcast(RoomWaiters, EventNewOrder, n)
	b.hub.Broadcast(RoomAdmins, EventDashboardUpdate, n)
	b.log.Debug("bus: order created", "order_id", orderID, "table_id", tableID)
}

// OrderStateChanged announces an order transition to staff, trackers of that
// specific order, and the admin dashboard.
func (b *Bus) OrderStateChanged(orderID, state string) {
	n := Notification{
		Type:     EventOrderStateChanged,
		Message:  fmt.Sprintf("Pedido %s ahora está %s", orderID, state),
		Data:     map[string]any{"pedido_id": orderID, "estado": state},
		Priority: PriorityMedium,
	}
	b.history.Append(n)
	b.hub.Broadcast(RoomCooks, EventOrderStateChanged, n)
	b.hub.Broadcast(RoomWaiters, EventOrderStateChanged, n)
	b.hub.Broadcast(OrderRoom(orderID), EventOrderStateChanged, n)
	b.hub.Broadcast(RoomAdmins, EventDashboardUpdate, n)
	b.log.Debug("bus: order state changed", "order_id", orderID, "state", state)
}

// OrderCancelled announces a cancellation to everyone connected, plus the
// admin dashboard.
func (b *Bus) OrderCancelled(orderID string) {
	n := Notification{
		Type:     EventOrderCancelled,
		Message:  fmt.Sprintf("Pedido %s cancelado", orderID),
		Data:     map[string]any{"pedido_id": orderID},
		Priority: PriorityHigh,
	}
	b.history.Append(n)
	b.hub.Broadcast(RoomGlobal, EventOrderCancelled, n)
	b.hub.Broadcast(RoomAdmins, EventDashboardUpdate, n)
	b.log.Debug("bus: order cancelled", "order_id", orderID)
}

// TableUpdated announces a table state change to floor staff and admins.
// Not retained in history.
func (b *Bus) TableUpdated(tableID, state string) {
	n := Notification{
		Type:      EventTableUpdated,
		Message:   fmt.Sprintf("Mesa %s ahora está %s", tableID, state),
		Data:      map[string]any{"mesa_id": tableID, "estado": state},
		Timestamp: time.Now().UTC(),
		Priority:  PriorityLow,
	}
	b.hub.Broadcast(RoomWaiters, EventTableUpdated, n)
	b.hub.Broadcast(RoomAdmins, EventTableUpdated, n)
	b.log.Debug("bus: table updated", "table_id", tableID, "state", state)
}
