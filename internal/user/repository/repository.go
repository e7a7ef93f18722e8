package repository

import (
	"context"

	"comanda/backend/internal/user/domain"
)

// Repository defines persistence for users. Lookups never return soft-deleted
// users; missing rows are (nil, nil), errors are database failures only.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// SoftDelete stamps deleted_at; the row is retained and hidden from lookups.
	SoftDelete(ctx context.Context, id string) error
}
