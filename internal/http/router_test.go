package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
	"salesops-data/internal/service"
	"salesops-data/internal/store"
)

const testSecret = "test-secret"

var (
	jst    = time.FixedZone("JST", 9*60*60)
	admin  = domain.Actor{ID: "u-admin", Name: "管理者", Role: domain.RoleAdmin}
	tanaka = domain.Actor{ID: "u-tanaka", Name: "田中", Role: domain.RoleMarketer}
	suzuki = domain.Actor{ID: "u-suzuki", Name: "鈴木", Role: domain.RoleMarketer}
)

type fakeRunner struct {
	res    *service.ImportResult
	err    error
	status *service.ImportStatus
	since  time.Time
}

func (f *fakeRunner) Run(_ context.Context, since, _ time.Time, _ string) (*service.ImportResult, error) {
	f.since = since
	return f.res, f.err
}

func (f *fakeRunner) LastStatus(context.Context) (*service.ImportStatus, error) {
	return f.status, nil
}

type testAPI struct {
	store  *repository.MemoryStore
	runner *fakeRunner
	router *Router
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	st := repository.NewMemoryStore()
	st.AddUser(domain.User{ID: tanaka.ID, Name: tanaka.Name, Role: domain.RoleMarketer})
	st.AddUser(domain.User{ID: suzuki.ID, Name: suzuki.Name, Role: domain.RoleMarketer})

	stats := service.NewStatsService(st, domain.RoleMarketer, logger)
	runner := &fakeRunner{res: &service.ImportResult{}}
	m := NewDTOMapper(jst)

	router := NewRouter(NewTokenVerifier(testSecret), logger)
	router.RegisterHealthRoutes()
	router.RegisterSalesTrackingRoutes(NewSalesTrackingHandler(
		service.NewSalesTrackingService(st, logger), service.NewPromotionService(st, jst, logger), stats, m, logger))
	router.RegisterRetargetingRoutes(NewRetargetingHandler(
		service.NewRetargetingService(st, jst, logger), service.NewConversionService(st, jst, logger), stats, m, logger))
	router.RegisterCustomerRoutes(NewCustomersHandler(service.NewCustomerService(st, jst, logger), m, logger))
	router.RegisterDashboardRoutes(NewDashboardHandler(service.NewDashboardService(st, domain.RoleMarketer, 100, jst, logger), logger))
	router.RegisterIntegrationRoutes(NewIntegrationsHandler(runner, 2*time.Hour, logger))
	return &testAPI{store: st, runner: runner, router: router}
}

func (a *testAPI) do(t *testing.T, actor *domain.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := IssueToken(testSecret, *actor, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testAPI) seedRecord(t *testing.T, manager, ownerID string) string {
	t.Helper()
	id, err := a.store.SalesTracking().Create(context.Background(), &domain.ContactRecord{
		Date:          time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		ManagerName:   manager,
		CompanyName:   sql.NullString{String: "ABC商事", Valid: true},
		ContactMethod: sql.NullString{String: "電話", Valid: true},
		Status:        domain.StatusReplied,
		UserID:        sql.NullString{String: ownerID, Valid: ownerID != ""},
	})
	require.NoError(t, err)
	return id
}

func TestHealth_NoAuth(t *testing.T) {
	rec := newTestAPI(t).do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Rejects(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, nil, http.MethodGet, "/api/sales-tracking", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/sales-tracking", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := IssueToken("other-secret", tanaka, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/sales-tracking", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerify_RequiresIdentity(t *testing.T) {
	token, err := IssueToken(testSecret, domain.Actor{Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	_, err = NewTokenVerifier(testSecret).Verify(token)
	assert.Error(t, err)

	expired, err := IssueToken(testSecret, tanaka, -time.Minute)
	require.NoError(t, err)
	_, err = NewTokenVerifier(testSecret).Verify(expired)
	assert.Error(t, err)
}

func TestMoveToRetargeting(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedRecord(t, "田中", tanaka.ID)
	path := "/api/sales-tracking/" + id + "/move-to-retargeting"

	rec := api.do(t, &suzuki, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, &tanaka, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	newID, _ := body["retargetingId"].(string)
	require.NotEmpty(t, newID)

	rec = api.do(t, &tanaka, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Already moved to retargeting", body["message"])
	assert.Equal(t, newID, body["retargetingId"])

	rec = api.do(t, &tanaka, http.MethodGet, "/api/sales-tracking/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["movedToRetargeting"])
}

func TestMoveToRetargeting_NotFound(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, &admin, http.MethodPost, "/api/sales-tracking/not-a-uuid/move-to-retargeting", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, &admin, http.MethodPost, "/api/sales-tracking/00000000-0000-0000-0000-000000000000/move-to-retargeting", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkMove(t *testing.T) {
	api := newTestAPI(t)
	a := api.seedRecord(t, "田中", tanaka.ID)
	b := api.seedRecord(t, "鈴木", suzuki.ID)

	rec := api.do(t, &tanaka, http.MethodPost, "/api/sales-tracking/bulk-move-to-retargeting", map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, &tanaka, http.MethodPost, "/api/sales-tracking/bulk-move-to-retargeting", map[string]any{"ids": []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, &tanaka, http.MethodPost, "/api/sales-tracking/bulk-move-to-retargeting", map[string]any{"ids": []string{a, b}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["successCount"])
	assert.EqualValues(t, 1, body["failCount"])
}

func TestCreateSalesTracking_Validation(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, &tanaka, http.MethodPost, "/api/sales-tracking", map[string]any{
		"date": "2024/03/01", "managerName": "田中",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields, _ := decode(t, rec)["fields"].(map[string]any)
	assert.Equal(t, "datetime", fields["date"])
	assert.Equal(t, "required", fields["status"])

	rec = api.do(t, &tanaka, http.MethodPost, "/api/sales-tracking", map[string]any{
		"date": "2024-03-01", "managerName": "田中", "status": "未返信", "contactMethod": "phone",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "2024-03-01", body["date"])
	assert.Equal(t, "電話", body["contactMethod"])
	assert.Nil(t, body["companyName"])
}

func TestMonthlyStats(t *testing.T) {
	api := newTestAPI(t)
	api.seedRecord(t, "田中", tanaka.ID)

	rec := api.do(t, &admin, http.MethodGet, "/api/sales-tracking/stats/monthly?year=2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, &admin, http.MethodGet, "/api/sales-tracking/stats/monthly?year=2024&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, &admin, http.MethodGet, "/api/sales-tracking/stats/monthly?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats, _ := decode(t, rec)["stats"].([]any)
	require.Len(t, stats, 2)
	first := stats[0].(map[string]any)
	assert.Equal(t, "田中", first["manager"])
	assert.EqualValues(t, 1, first["phoneCount"])
	assert.Equal(t, "100.0%", first["replyRate"])
}

func TestDailyStats_RequiresDates(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, &admin, http.MethodGet, "/api/sales-tracking/stats/daily?startDate=2024-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, &admin, http.MethodGet, "/api/sales-tracking/stats/daily?startDate=2024-03-01&endDate=2024-03-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats, _ := decode(t, rec)["stats"].([]any)
	assert.Len(t, stats, 3)
}

func TestConvertFlow(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedRecord(t, "田中", tanaka.ID)

	rec := api.do(t, &tanaka, http.MethodPost, "/api/sales-tracking/"+id+"/move-to-retargeting", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pcID := decode(t, rec)["retargetingId"].(string)

	rec = api.do(t, &tanaka, http.MethodPost, "/api/retargeting/"+pcID+"/history", map[string]any{"type": "memo", "content": "初回連絡"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, &tanaka, http.MethodPost, "/api/retargeting/"+pcID+"/convert", map[string]any{
		"monthlyBudget": "30000", "contractStartDate": "2024-04-01", "contractExpirationDate": "2024-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, &tanaka, http.MethodPost, "/api/retargeting/"+pcID+"/convert", map[string]any{
		"monthlyBudget": "30000", "contractStartDate": "2024-04-01",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	customer := decode(t, rec)
	customerID := customer["id"].(string)
	assert.Equal(t, "ABC商事", customer["companyName"])

	rec = api.do(t, &tanaka, http.MethodGet, "/api/retargeting/"+pcID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, &tanaka, http.MethodGet, "/api/customers/"+customerID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "初回連絡")

	rec = api.do(t, &tanaka, http.MethodPost, "/api/customers/"+customerID+"/extend", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, decode(t, rec)["contractExpirationDate"])

	rec = api.do(t, &tanaka, http.MethodDelete, "/api/customers/"+customerID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, &admin, http.MethodDelete, "/api/customers/"+customerID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPersonalStats(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, &tanaka, http.MethodPost, "/api/retargeting", map[string]any{"customerName": "山田"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, &tanaka, http.MethodGet, "/api/retargeting/stats/personal?manager=鈴木", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "田中", body["manager"])
	assert.EqualValues(t, 1, body["total"])

	rec = api.do(t, &admin, http.MethodGet, "/api/retargeting/stats/personal?manager=鈴木", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["total"])
}

func TestDashboardStats(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, &admin, http.MethodGet, "/api/dashboard/stats?startDate=2024-03-01&endDate=2024-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	progress := decode(t, rec)["progress"].(map[string]any)
	assert.EqualValues(t, 200, progress["target"])

	rec = api.do(t, &admin, http.MethodGet, "/api/dashboard/stats?startDate=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, &tanaka, http.MethodGet, "/api/dashboard/monthly-sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	months, _ := decode(t, rec)["months"].([]any)
	assert.Len(t, months, 12)
}

func TestCPIImportEndpoint(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, &tanaka, http.MethodPost, "/api/integrations/cpi/import", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	api.runner.res = &service.ImportResult{Inserted: 4, Updated: 1, Skipped: 2}
	rec = api.do(t, &admin, http.MethodPost, "/api/integrations/cpi/import?since=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 4, body["inserted"])
	assert.Equal(t, "2024-03-01", api.runner.since.Format("2006-01-02"))

	api.runner.err = &service.Error{Kind: service.KindConflict, Message: "Import already running"}
	rec = api.do(t, &admin, http.MethodPost, "/api/integrations/cpi/import", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, &admin, http.MethodGet, "/api/integrations/cpi/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["status"])
}

func TestCPIImportEndpoint_WithScheduler(t *testing.T) {
	logger := zap.NewNop()
	st := repository.NewMemoryStore()
	importer := service.NewCPIImportService(st, emptyFetcher{}, 100, jst, logger)
	sched := service.NewImportScheduler(importer, store.NewMemoryKV(), "@every 1m", time.Hour, jst, logger)

	router := NewRouter(NewTokenVerifier(testSecret), logger)
	router.RegisterIntegrationRoutes(NewIntegrationsHandler(sched, time.Hour, logger))
	api := &testAPI{store: st, router: router}

	rec := api.do(t, &admin, http.MethodPost, "/api/integrations/cpi/import", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, &admin, http.MethodGet, "/api/integrations/cpi/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)["status"].(map[string]any)
	assert.Equal(t, "manual", status["trigger"])
}

type emptyFetcher struct{}

func (emptyFetcher) FetchOutboundCalls(context.Context, service.CPIFetchParams) (*service.CPIRecordPage, error) {
	return &service.CPIRecordPage{}, nil
}

func TestRequireAuth_AttachesRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	runner := &fakeRunner{res: &service.ImportResult{Inserted: 1}}

	router := NewRouter(NewTokenVerifier(testSecret), logger)
	router.RegisterIntegrationRoutes(NewIntegrationsHandler(runner, time.Hour, logger))
	api := &testAPI{router: router}

	rec := api.do(t, &admin, http.MethodPost, "/api/integrations/cpi/import", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("Manual CPI import finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, admin.ID, fields["actor_id"])
	assert.Equal(t, admin.Name, fields["actor"])
	assert.Equal(t, "/api/integrations/cpi/import", fields["path"])
	assert.EqualValues(t, 1, fields["inserted"])
}
