package repository

import (
	"context"

	"salesops-data/internal/domain"
)

// RetargetingRepository PipelineCustomer persistence
type RetargetingRepository interface {
	Get(ctx context.Context, id string) (*domain.PipelineCustomer, error)
	List(ctx context.Context, filter RetargetingFilter) ([]*domain.PipelineCustomer, int, error)

	// Create returns ErrDuplicate when c.SalesTrackingID is already promoted.
	Create(ctx context.Context, c *domain.PipelineCustomer) (string, error)
	Update(ctx context.Context, c *domain.PipelineCustomer) error
	Delete(ctx context.Context, id string) error

	// FindBySalesTrackingID returns the id of the PipelineCustomer promoted from
	// the given ContactRecord, or ErrNotFound.
	FindBySalesTrackingID(ctx context.Context, salesTrackingID string) (string, error)
	// DetachSalesTracking clears the provenance link before the source record is deleted.
	DetachSalesTracking(ctx context.Context, salesTrackingID string) (int64, error)
}

// RetargetingFilter list filter. Trash is hidden unless asked for explicitly.
type RetargetingFilter struct {
	Stage   domain.FunnelStage
	Manager string
	Search  string
	Limit   int
	Offset  int
}
