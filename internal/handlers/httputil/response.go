package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/domain"
)

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// ErrorResponse wraps ErrorBody under "error"
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WriteJSON writes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error to its HTTP status
func StatusFor(err error) int {
	var badReq *BadRequestError
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsValidationError(err):
		return http.StatusUnprocessableEntity
	}

	switch domain.GetErrorCode(err) {
	case domain.ErrorCodeRecordLocked:
		return http.StatusLocked
	case domain.ErrorCodeConcurrencyConflict:
		return http.StatusConflict
	}
	if domain.IsRuleViolation(err) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// WriteError maps err to a status and writes the error envelope. Internal
// errors are logged and their message is not exposed.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := StatusFor(err)

	body := ErrorBody{Code: string(domain.ErrorCodeInternalError), Message: "internal server error"}
	var domainErr *domain.DomainError
	var badReq *BadRequestError
	switch {
	case errors.As(err, &badReq):
		body = ErrorBody{Code: "BAD_REQUEST", Message: badReq.Message}
	case status == http.StatusGatewayTimeout:
		body = ErrorBody{Code: "TIMEOUT", Message: "request timed out"}
	case status < http.StatusInternalServerError && errors.As(err, &domainErr):
		body = ErrorBody{Code: string(domainErr.Code), Message: domainErr.Message, Details: domainErr.Details}
		if len(body.Details) == 0 {
			body.Details = nil
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.Int("status", status), zap.String("code", body.Code))
	}

	WriteJSON(w, status, ErrorResponse{Error: body})
}
