package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesops-data/internal/domain"
)

func seedContact(t *testing.T, s *MemoryStore, manager string, day time.Time, method, status string) string {
	t.Helper()
	id, err := s.SalesTracking().Create(context.Background(), &domain.ContactRecord{
		Date:          day,
		ManagerName:   manager,
		ContactMethod: sql.NullString{String: method, Valid: method != ""},
		Status:        status,
	})
	require.NoError(t, err)
	return id
}

func TestMemoryStoreInTx_RollbackRestoresSnapshot(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	stID := seedContact(t, s, "田中", time.Now(), "電話", "未返信")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx Store) error {
		_, err := tx.Retargeting().Create(ctx, &domain.PipelineCustomer{
			CompanyName: "A", CustomerName: "B", Phone: "0", Manager: "田中",
			SalesTrackingID: sql.NullString{String: stID, Valid: true},
		})
		require.NoError(t, err)
		require.NoError(t, tx.SalesTracking().Delete(ctx, stID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.SalesTracking().Get(ctx, stID)
	assert.NoError(t, err)
	_, total, err := s.Retargeting().List(ctx, RetargetingFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMemoryStore_PromotionUniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	stID := seedContact(t, s, "田中", time.Now(), "電話", "未返信")

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, dup int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, func(tx Store) error {
				_, err := tx.Retargeting().Create(ctx, &domain.PipelineCustomer{
					CompanyName: "A", CustomerName: "B", Phone: "0", Manager: "田中",
					SalesTrackingID: sql.NullString{String: stID, Valid: true},
				})
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrDuplicate):
				dup++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
}

func TestMemoryStore_DeleteSourceDetachesPipelineCustomer(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	stID := seedContact(t, s, "田中", time.Now(), "電話", "未返信")

	pcID, err := s.Retargeting().Create(ctx, &domain.PipelineCustomer{
		CompanyName: "A", CustomerName: "B", Phone: "0", Manager: "田中",
		SalesTrackingID: sql.NullString{String: stID, Valid: true},
	})
	require.NoError(t, err)

	rec, err := s.SalesTracking().Get(ctx, stID)
	require.NoError(t, err)
	assert.True(t, rec.MovedToRetargeting)

	require.NoError(t, s.SalesTracking().Delete(ctx, stID))
	pc, err := s.Retargeting().Get(ctx, pcID)
	require.NoError(t, err)
	assert.False(t, pc.SalesTrackingID.Valid)
}

func TestMemoryStats_ContactActivityRespectsRoleAndRange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.AddUser(domain.User{Name: "田中", Role: domain.RoleMarketer})
	s.AddUser(domain.User{Name: "管理者", Role: domain.RoleAdmin})

	nov := time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC)
	seedContact(t, s, "田中", nov, "電話", "未返信")
	seedContact(t, s, "田中", nov, "電話", "未返信")
	seedContact(t, s, "田中", nov.AddDate(0, 1, 0), "電話", "未返信")
	seedContact(t, s, "管理者", nov, "DM", "返信あり")

	from := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	rows, err := s.Stats().ContactActivity(ctx, from, from.AddDate(0, 1, 0), domain.RoleMarketer)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "田中", rows[0].Manager)
	assert.Equal(t, 2, rows[0].Count)
}

func TestMemoryHistory_PinnedFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cid, err := s.Customers().Create(ctx, &domain.Customer{CompanyName: "A", CustomerName: "B", Manager: "田中"})
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	old, err := s.History().Add(ctx, domain.CustomerHistory, &domain.HistoryEntry{OwnerID: cid, Type: domain.HistoryMemo, CreatedAt: base})
	require.NoError(t, err)
	_, err = s.History().Add(ctx, domain.CustomerHistory, &domain.HistoryEntry{OwnerID: cid, Type: domain.HistoryMemo, CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, s.History().SetPinned(ctx, domain.CustomerHistory, old, true))

	list, err := s.History().List(ctx, domain.CustomerHistory, cid)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, old, list[0].ID)

	_, err = s.History().Add(ctx, domain.CustomerHistory, &domain.HistoryEntry{OwnerID: "missing", Type: domain.HistoryMemo})
	assert.Error(t, err)
}

func TestMemoryStats_StageCountsFoldsManagerVariant(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, m := range []string{"山﨑", "山崎 ", "田中"} {
		_, err := s.Retargeting().Create(ctx, &domain.PipelineCustomer{
			CompanyName: "A", CustomerName: "B", Phone: "0", Manager: m, Status: domain.StageStart,
		})
		require.NoError(t, err)
	}

	for _, q := range []string{"山崎", "山﨑"} {
		rows, err := s.Stats().StageCounts(ctx, q)
		require.NoError(t, err)
		total := 0
		for _, r := range rows {
			total += r.Count
		}
		assert.Equal(t, 2, total, q)

		_, n, err := s.Retargeting().List(ctx, RetargetingFilter{Manager: q})
		require.NoError(t, err)
		assert.Equal(t, 2, n, q)
	}
}
