package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"salesops-data/internal/repository"
	"salesops-data/internal/service"
)

// errorBody every non-2xx response. Code/Constraint are the SQLSTATE details
// of an unclassified database failure.
type errorBody struct {
	Message       string            `json:"message"`
	Error         string            `json:"error,omitempty"`
	RetargetingID string            `json:"retargetingId,omitempty"`
	Code          string            `json:"code,omitempty"`
	Constraint    string            `json:"constraint,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

func statusForKind(k service.Kind) int {
	switch k {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindConflict, service.KindInvalidState, service.KindValidation:
		return http.StatusBadRequest
	case service.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeServiceError maps service errors to a status and body. Internal errors
// are logged; callers only see a generic message and SQLSTATE details.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	kind := service.KindOf(err)
	status := statusForKind(kind)
	body := errorBody{Message: "Internal server error"}

	var se *service.Error
	if errors.As(err, &se) && kind != service.KindInternal {
		body.Message = se.Message
		body.RetargetingID = se.ExistingID
	}
	switch kind {
	case service.KindTransient:
		body.Error = "transient"
		w.Header().Set("Retry-After", "1")
		logger.Warn(op+" transient failure", zap.Error(err))
	case service.KindInternal:
		body.Error = "internal"
		if se != nil && se.Message != "" {
			body.Message = se.Message
		}
		var dbErr *repository.DBError
		if errors.As(err, &dbErr) {
			body.Code = dbErr.Code
			body.Constraint = dbErr.Constraint
		}
		logger.Error(op+" failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Message: msg})
}
