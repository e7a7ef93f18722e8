package repository

import (
	"context"

	"comanda/backend/internal/order/domain"
)

// Repository defines persistence for orders and tables. Lookups return
// (nil, nil) for missing rows; errors are database failures only.
type Repository interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderState(ctx context.Context, id string, state domain.State) error
	CancelOrder(ctx context.Context, id string) error
	GetTable(ctx context.Context, id string) (*domain.Table, error)
	UpdateTableState(ctx context.Context, id string, state domain.TableState) error
}
