package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salesops-data/internal/repository"
	"salesops-data/internal/service"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", &service.Error{Kind: service.KindNotFound, Message: "Sales tracking record not found"}, http.StatusNotFound, "Sales tracking record not found"},
		{"forbidden", &service.Error{Kind: service.KindForbidden, Message: "nope"}, http.StatusForbidden, "nope"},
		{"invalid state", &service.Error{Kind: service.KindInvalidState, Message: "Manager name is required"}, http.StatusBadRequest, "Manager name is required"},
		{"validation", &service.Error{Kind: service.KindValidation, Message: "bad"}, http.StatusBadRequest, "bad"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, zap.NewNop(), "op", tt.err)
			assert.Equal(t, tt.status, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestWriteServiceError_Conflict(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, zap.NewNop(), "op", fmt.Errorf("wrapped: %w",
		&service.Error{Kind: service.KindConflict, Message: "Already moved to retargeting", ExistingID: "pc-1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pc-1", body.RetargetingID)
}

func TestWriteServiceError_Transient(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, zap.NewNop(), "op", &service.Error{Kind: service.KindTransient, Message: "Database busy, retry"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "transient", body.Error)
}

func TestWriteServiceError_DBDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &service.Error{
		Kind:    service.KindInternal,
		Message: "Failed to create retargeting customer",
		Err:     &repository.DBError{Op: "insert", Code: "23502", Constraint: "retargeting_customers_phone_check", Err: errors.New("null value in column")},
	}
	writeServiceError(rec, zap.NewNop(), "op", err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to create retargeting customer", body.Message)
	assert.Equal(t, "23502", body.Code)
	assert.Equal(t, "retargeting_customers_phone_check", body.Constraint)
}
