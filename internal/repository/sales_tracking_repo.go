package repository

import (
	"context"
	"time"

	"salesops-data/internal/domain"
)

// SalesTrackingRepository ContactRecord persistence
type SalesTrackingRepository interface {
	// Get returns ErrNotFound when the record does not exist.
	Get(ctx context.Context, id string) (*domain.ContactRecord, error)
	// List returns one page plus the total match count.
	List(ctx context.Context, filter SalesTrackingFilter) ([]*domain.ContactRecord, int, error)

	Create(ctx context.Context, rec *domain.ContactRecord) (string, error)
	// Update rewrites the editable columns. Provenance columns (user_id,
	// external_*) are left alone.
	Update(ctx context.Context, rec *domain.ContactRecord) error
	Delete(ctx context.Context, id string) error
	SetLastContact(ctx context.Context, id string, at *time.Time) error

	// ========== call import ==========
	// FindByExternalCallID returns the record id, or ErrNotFound.
	FindByExternalCallID(ctx context.Context, externalCallID string) (string, error)
	// UpdateFromExternal refreshes the imported columns of the record with rec.ExternalCallID.
	UpdateFromExternal(ctx context.Context, rec *domain.ContactRecord) error
	// ExistsExternalPhone reports whether a record from source already has this digit-only phone.
	ExistsExternalPhone(ctx context.Context, source, phoneDigits string) (bool, error)
}

// SalesTrackingFilter list filter. Zero values disable a condition.
type SalesTrackingFilter struct {
	Search  string    // manager, account, customer, company, industry, phone
	Manager string    // exact manager_name
	From    time.Time // date >= From
	To      time.Time // date < To
	Limit   int
	Offset  int
}
