package httpapi

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesops-data/internal/service"
)

func TestGenerateMonthlyStatsExcel(t *testing.T) {
	stats := []service.MonthlyStat{
		{Manager: "田中", ContactCounters: service.ContactCounters{PhoneCount: 2, SendCount: 2, TotalCount: 4, ReplyCount: 2, ReplyRate: "50.0%", ContractCount: 1}},
		{Manager: "鈴木", ContactCounters: service.ContactCounters{SendCount: 1, TotalCount: 1, ReplyRate: "0.0%"}},
	}
	data, err := GenerateMonthlyStatsExcel(2024, 3, stats)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2024-03"}, f.GetSheetList())
	rows, err := f.GetRows("2024-03")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, MonthlyStatsHeader, rows[0])
	assert.Equal(t, "田中", rows[1][0])
	assert.Equal(t, "50.0%", rows[1][5])
	assert.Equal(t, []string{"合計", "2", "3", "5", "2", "40.0%", "0", "0", "1"}, rows[3])
}

func TestGenerateMonthlyStatsExcel_Empty(t *testing.T) {
	data, err := GenerateMonthlyStatsExcel(2024, 1, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("2024-01")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "合計", rows[1][0])
	assert.Equal(t, "0.0%", rows[1][5])
}

func TestExportMonthlyStats_Endpoint(t *testing.T) {
	api := newTestAPI(t)
	api.seedRecord(t, "田中", tanaka.ID)

	rec := api.do(t, &admin, http.MethodGet, "/api/sales-tracking/stats/monthly/export?month=3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, &admin, http.MethodGet, "/api/sales-tracking/stats/monthly/export?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "monthly-stats-2024-03.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("2024-03")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "田中", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
}
