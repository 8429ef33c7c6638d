package repository

import (
	"context"

	"salesops-data/internal/domain"
)

// HistoryRepository interaction history for both streams. The stream selects
// the table; owner ids are customer ids or retargeting customer ids.
type HistoryRepository interface {
	// List returns pinned entries first, then newest first.
	List(ctx context.Context, stream domain.HistoryStream, ownerID string) ([]*domain.HistoryEntry, error)
	Get(ctx context.Context, stream domain.HistoryStream, historyID string) (*domain.HistoryEntry, error)
	// Add keeps e.CreatedAt when set, so copied entries retain their timestamp.
	Add(ctx context.Context, stream domain.HistoryStream, e *domain.HistoryEntry) (string, error)
	Delete(ctx context.Context, stream domain.HistoryStream, historyID string) error
	SetPinned(ctx context.Context, stream domain.HistoryStream, historyID string, pinned bool) error
	DeleteByOwner(ctx context.Context, stream domain.HistoryStream, ownerID string) (int64, error)
}
