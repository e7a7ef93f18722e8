package domain

import (
	"errors"
	"time"
)

// State is an order's lifecycle stage. Values are external contract (Spanish).
type State string

const (
	StatePending   State = "pendiente"
	StatePreparing State = "en_preparacion"
	StateReady     State = "listo"
	StateDelivered State = "entregado"
	StateCancelled State = "cancelado"
)

// ParseState validates a state value from the outside.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePending, StatePreparing, StateReady, StateDelivered, StateCancelled:
		return State(s), nil
	}
	return "", errors.New("unknown order state: " + s)
}

// Order is a restaurant order.
type Order struct {
	ID          string
	TableID     string
	State       State
	Notes       string
	CreatedBy   string
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Cancelled reports whether the order was soft-cancelled.
func (o *Order) Cancelled() bool { return o.CancelledAt != nil }

// TableState is a dining table's occupancy state.
type TableState string

const (
	TableFree     TableState = "libre"
	TableOccupied TableState = "ocupada"
	TableReserved TableState = "reservada"
)

// ParseTableState validates a table state value from the outside.
func ParseTableState(s string) (TableState, error) {
	switch TableState(s) {
	case TableFree, TableOccupied, TableReserved:
		return TableState(s), nil
	}
	return "", errors.New("unknown table state: " + s)
}

// Table is a dining table.
type Table struct {
	ID        string
	Number    int
	State     TableState
	UpdatedAt time.Time
}
