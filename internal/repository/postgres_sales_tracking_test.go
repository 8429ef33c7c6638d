package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesops-data/internal/domain"
)

func setupMockSalesTrackingDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSalesTrackingRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresSalesTrackingRepository(db)
}

var contactRecordRowColumns = []string{
	"id", "date", "manager_name", "company_name", "customer_name", "account_id", "industry",
	"contact_method", "status", "contact_person", "phone", "memo", "memo_note", "user_id",
	"external_call_id", "external_source", "last_contact_at", "created_at", "updated_at", "moved",
}

// ============================================
// Get
// ============================================

func TestSalesTrackingGet_Success(t *testing.T) {
	db, mock, repo := setupMockSalesTrackingDB(t)
	defer db.Close()

	id := uuid.NewString()
	ownerID := uuid.NewString()
	day := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	rows := sqlmock.NewRows(contactRecordRowColumns).AddRow(
		id, day, "田中", "株式会社ABC", nil, "abc_insta", "美容",
		"DM", "返信あり", nil, "03-1234-5678", nil, nil, ownerID,
		nil, nil, nil, now, now, true,
	)
	mock.ExpectQuery(`SELECT`).WithArgs(id).WillReturnRows(rows)

	rec, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "田中", rec.ManagerName)
	assert.Equal(t, "株式会社ABC", rec.CompanyName.String)
	assert.False(t, rec.CustomerName.Valid)
	assert.Equal(t, "abc_insta", rec.AccountID.String)
	assert.True(t, rec.IsOwnedBy(ownerID))
	assert.True(t, rec.MovedToRetargeting)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalesTrackingGet_NotFound(t *testing.T) {
	db, mock, repo := setupMockSalesTrackingDB(t)
	defer db.Close()

	id := uuid.NewString()
	mock.ExpectQuery(`SELECT`).WithArgs(id).WillReturnError(sql.ErrNoRows)

	rec, err := repo.Get(context.Background(), id)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// List
// ============================================

func TestSalesTrackingList_FiltersAndPaging(t *testing.T) {
	db, mock, repo := setupMockSalesTrackingDB(t)
	defer db.Close()

	from := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sales_tracking st WHERE`).
		WithArgs("%abc%", "田中", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY st.date DESC`).
		WithArgs("%abc%", "田中", from, to, 20, 40).
		WillReturnRows(sqlmock.NewRows(contactRecordRowColumns).AddRow(
			uuid.NewString(), from, "田中", "abc", nil, nil, nil,
			"電話", "未返信", nil, nil, nil, nil, nil,
			nil, nil, nil, from, from, false,
		))

	recs, total, err := repo.List(context.Background(), SalesTrackingFilter{
		Search: " abc ", Manager: "田中", From: from, To: to, Limit: 20, Offset: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, recs, 1)
	assert.Equal(t, "電話", recs[0].ContactMethod.String)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Create / Update / Delete
// ============================================

func TestSalesTrackingCreate_ReturnsID(t *testing.T) {
	db, mock, repo := setupMockSalesTrackingDB(t)
	defer db.Close()

	newID := uuid.NewString()
	mock.ExpectQuery(`INSERT INTO sales_tracking`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(newID))

	id, err := repo.Create(context.Background(), &domain.ContactRecord{
		Date:        time.Now(),
		ManagerName: "田中",
		Status:      domain.StatusNotReplied,
	})
	require.NoError(t, err)
	assert.Equal(t, newID, id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalesTrackingCreate_DuplicateExternalCall(t *testing.T) {
	db, mock, repo := setupMockSalesTrackingDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO sales_tracking`).
		WillReturnError(pqUniqueViolation("idx_sales_tracking_external_call_id"))

	_, err := repo.Create(context.Background(), &domain.ContactRecord{
		ManagerName:    "田中",
		ExternalCallID: sql.NullString{String: "cpi-1", Valid: true},
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	var dbErr *DBError
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "idx_sales_tracking_external_call_id", dbErr.Constraint)
}

func TestSalesTrackingUpdate_NotFound(t *testing.T) {
	db, mock, repo := setupMockSalesTrackingDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE sales_tracking SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.ContactRecord{ID: uuid.NewString(), ManagerName: "田中"})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalesTrackingDelete_Success(t *testing.T) {
	db, mock, repo := setupMockSalesTrackingDB(t)
	defer db.Close()

	id := uuid.NewString()
	mock.ExpectExec(`DELETE FROM sales_tracking`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Call import helpers
// ============================================

func TestSalesTrackingExistsExternalPhone(t *testing.T) {
	db, mock, repo := setupMockSalesTrackingDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("cpi", "0312345678").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsExternalPhone(context.Background(), "cpi", "0312345678")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalesTrackingFindByExternalCallID_NotFound(t *testing.T) {
	db, mock, repo := setupMockSalesTrackingDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id::text FROM sales_tracking WHERE external_call_id`).
		WithArgs("cpi-404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByExternalCallID(context.Background(), "cpi-404")
	assert.ErrorIs(t, err, ErrNotFound)
}
