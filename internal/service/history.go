package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
)

// HistoryInput new interaction history entry.
type HistoryInput struct {
	Type    string
	Content string
}

func historyEntry(stream domain.HistoryStream, ownerID string, in HistoryInput, actor domain.Actor) (*domain.HistoryEntry, error) {
	t := domain.HistoryType(strings.TrimSpace(in.Type))
	if t == "" {
		t = domain.HistoryMemo
	}
	if !t.ValidFor(stream) {
		return nil, validation(fmt.Sprintf("invalid history type: %s", in.Type))
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, validation("content is required")
	}
	return &domain.HistoryEntry{
		OwnerID:  ownerID,
		UserID:   sql.NullString{String: actor.ID, Valid: actor.ID != ""},
		UserName: sql.NullString{String: actor.Name, Valid: actor.Name != ""},
		Type:     t,
		Content:  content,
	}, nil
}

// ownedHistoryEntry loads historyID and checks that it belongs to ownerID.
func ownedHistoryEntry(ctx context.Context, repo repository.HistoryRepository, stream domain.HistoryStream, ownerID, historyID string) (*domain.HistoryEntry, error) {
	e, err := repo.Get(ctx, stream, historyID)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load history", "History not found")
	}
	if e.OwnerID != ownerID {
		return nil, notFound("History not found")
	}
	return e, nil
}
