package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
)

func TestSalesTrackingCreate_Sanitizes(t *testing.T) {
	s := repository.NewMemoryStore()
	svc := NewSalesTrackingService(s, zap.NewNop())

	rec, err := svc.Create(context.Background(), ContactRecordInput{
		Date:          day(2024, 3, 10),
		ManagerName:   " 山﨑 ",
		Status:        "未返信",
		CompanyName:   "  ",
		ContactMethod: "tel",
		Phone:         "03-1234-5678",
	}, tanakaActor)
	require.NoError(t, err)
	assert.Equal(t, "山崎", rec.ManagerName)
	assert.False(t, rec.CompanyName.Valid)
	assert.Equal(t, string(domain.ContactMethodPhone), rec.ContactMethod.String)
	assert.True(t, rec.Phone.Valid)
	assert.Equal(t, tanakaActor.ID, rec.UserID.String)
}

func TestSalesTrackingCreate_RequiredFields(t *testing.T) {
	svc := NewSalesTrackingService(repository.NewMemoryStore(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, ContactRecordInput{ManagerName: "田中", Status: "未返信"}, tanakaActor)
	requireKind(t, err, KindValidation)
	_, err = svc.Create(ctx, ContactRecordInput{Date: day(2024, 3, 1), ManagerName: " ", Status: "未返信"}, tanakaActor)
	requireKind(t, err, KindValidation)
	_, err = svc.Create(ctx, ContactRecordInput{Date: day(2024, 3, 1), ManagerName: "田中"}, tanakaActor)
	requireKind(t, err, KindValidation)
}

func TestSalesTrackingUpdate_Forbidden(t *testing.T) {
	s := repository.NewMemoryStore()
	id := seedRecord(t, s, domain.ContactRecord{Date: day(2024, 3, 1), ManagerName: "田中", UserID: ns(tanakaActor.ID)})

	_, err := NewSalesTrackingService(s, zap.NewNop()).Update(context.Background(), id, ContactRecordInput{
		Date: day(2024, 3, 1), ManagerName: "鈴木", Status: "返信あり",
	}, suzukiActor)
	requireKind(t, err, KindForbidden)
}

func TestSalesTrackingDelete_DetachesPipelineCustomers(t *testing.T) {
	s := repository.NewMemoryStore()
	ctx := context.Background()
	id := seedRecord(t, s, domain.ContactRecord{Date: day(2024, 3, 1), ManagerName: "田中"})
	pcID := seedPipeline(t, s, domain.PipelineCustomer{Manager: "田中", SalesTrackingID: ns(id)})

	require.NoError(t, NewSalesTrackingService(s, zap.NewNop()).Delete(ctx, id, tanakaActor))

	_, err := s.SalesTracking().Get(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	pc, err := s.Retargeting().Get(ctx, pcID)
	require.NoError(t, err)
	assert.False(t, pc.SalesTrackingID.Valid)
}

func TestSalesTrackingDelete_NotFound(t *testing.T) {
	err := NewSalesTrackingService(repository.NewMemoryStore(), zap.NewNop()).
		Delete(context.Background(), "00000000-0000-0000-0000-000000000000", adminActor)
	requireKind(t, err, KindNotFound)
}

func TestTouchContact(t *testing.T) {
	s := repository.NewMemoryStore()
	id := seedRecord(t, s, domain.ContactRecord{Date: day(2024, 3, 1), ManagerName: "田中"})
	svc := NewSalesTrackingService(s, zap.NewNop())
	svc.now = fixedNow

	rec, err := svc.TouchContact(context.Background(), id, false, tanakaActor)
	require.NoError(t, err)
	assert.True(t, rec.LastContactAt.Valid)
	assert.True(t, rec.LastContactAt.Time.Equal(fixedNow()))

	rec, err = svc.TouchContact(context.Background(), id, true, tanakaActor)
	require.NoError(t, err)
	assert.False(t, rec.LastContactAt.Valid)
}

func TestSalesTrackingList_Paging(t *testing.T) {
	s := repository.NewMemoryStore()
	for d := 1; d <= 5; d++ {
		seedRecord(t, s, domain.ContactRecord{Date: day(2024, 3, d), ManagerName: "田中"})
	}
	seedRecord(t, s, domain.ContactRecord{Date: day(2024, 3, 2), ManagerName: "鈴木"})
	svc := NewSalesTrackingService(s, zap.NewNop())

	resp, err := svc.List(context.Background(), ListSalesTrackingRequest{Manager: "田中", Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Total)
	assert.Len(t, resp.Items, 2)

	resp, err = svc.List(context.Background(), ListSalesTrackingRequest{From: day(2024, 3, 2), To: day(2024, 3, 3)})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
}

func TestNormalizePage(t *testing.T) {
	p, sz := normalizePage(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, defaultPageSize, sz)
	_, sz = normalizePage(3, 10_000)
	assert.Equal(t, maxPageSize, sz)
}
