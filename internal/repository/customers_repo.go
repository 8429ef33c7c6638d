package repository

import (
	"context"
	"time"

	"salesops-data/internal/domain"
)

// CustomersRepository Customer persistence
type CustomersRepository interface {
	Get(ctx context.Context, id string) (*domain.Customer, error)
	List(ctx context.Context, filter CustomersFilter) ([]*domain.Customer, int, error)
	Create(ctx context.Context, c *domain.Customer) (string, error)
	Update(ctx context.Context, c *domain.Customer) error
	Delete(ctx context.Context, id string) error
	SetContractExpiration(ctx context.Context, id string, expiration time.Time) error
	// CountByStatus counts customers in status; manager "" counts all managers.
	CountByStatus(ctx context.Context, status domain.CustomerStatus, manager string) (int, error)
}

type CustomersFilter struct {
	Manager string
	Status  domain.CustomerStatus
	Search  string
	Limit   int
	Offset  int
}
