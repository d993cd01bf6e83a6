package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Payment lifecycle rule violations (PAYMENT_*)
	ErrorCodeIllegalTransition   ErrorCode = "PAYMENT_ILLEGAL_TRANSITION"
	ErrorCodeTerminalState       ErrorCode = "PAYMENT_TERMINAL_STATE"
	ErrorCodeMissingEvidence     ErrorCode = "PAYMENT_MISSING_EVIDENCE"
	ErrorCodeEvidenceWithdrawal  ErrorCode = "PAYMENT_EVIDENCE_WITHDRAWAL"
	ErrorCodeInvalidFrequency    ErrorCode = "PAYMENT_INVALID_FREQUENCY"
	ErrorCodePaymentNotFound     ErrorCode = "PAYMENT_NOT_FOUND"
	ErrorCodeDocumentNotFound    ErrorCode = "PAYMENT_DOCUMENT_NOT_FOUND"
	ErrorCodeClientNotFound      ErrorCode = "CLIENT_NOT_FOUND"
	ErrorCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
	ErrorCodeRecordLocked        ErrorCode = "RECORD_LOCKED"

	// Plan change errors (PLAN_*)
	ErrorCodeNoOpSamePlan         ErrorCode = "PLAN_NOOP_SAME_PLAN"
	ErrorCodePlanNotBillable      ErrorCode = "PLAN_NOT_BILLABLE"
	ErrorCodePlanNotFound         ErrorCode = "PLAN_NOT_FOUND"
	ErrorCodeSubscriptionNotFound ErrorCode = "SUBSCRIPTION_NOT_FOUND"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so errors.Is works
// against the sentinel values below even when details differ.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodePaymentNotFound ||
		code == ErrorCodeDocumentNotFound ||
		code == ErrorCodePlanNotFound ||
		code == ErrorCodeSubscriptionNotFound
}

// IsRuleViolation checks if an error is a payment lifecycle or plan change rule violation
func IsRuleViolation(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeIllegalTransition,
		ErrorCodeTerminalState,
		ErrorCodeMissingEvidence,
		ErrorCodeEvidenceWithdrawal,
		ErrorCodeInvalidFrequency,
		ErrorCodeClientNotFound,
		ErrorCodeNoOpSamePlan,
		ErrorCodePlanNotBillable:
		return true
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField
}

// Sentinel instances for errors.Is comparisons. Never attach details to these;
// build a fresh error with NewDomainError when context is needed.
var (
	ErrIllegalTransition   = NewDomainError(ErrorCodeIllegalTransition, "target status is not reachable from current status")
	ErrTerminalState       = NewDomainError(ErrorCodeTerminalState, "payment is in a terminal state")
	ErrMissingEvidence     = NewDomainError(ErrorCodeMissingEvidence, "invoice required but not attached")
	ErrEvidenceWithdrawal  = NewDomainError(ErrorCodeEvidenceWithdrawal, "evidence already relied upon cannot be detached")
	ErrInvalidFrequency    = NewDomainError(ErrorCodeInvalidFrequency, "recurring payment has no valid frequency")
	ErrPaymentNotFound     = NewDomainError(ErrorCodePaymentNotFound, "payment not found")
	ErrDocumentNotFound    = NewDomainError(ErrorCodeDocumentNotFound, "document not attached to payment")
	ErrClientNotFound      = NewDomainError(ErrorCodeClientNotFound, "client not found")
	ErrConcurrencyConflict = NewDomainError(ErrorCodeConcurrencyConflict, "payment was modified concurrently")
	ErrRecordLocked        = NewDomainError(ErrorCodeRecordLocked, "payment is locked by another request")

	ErrNoOpSamePlan         = NewDomainError(ErrorCodeNoOpSamePlan, "target plan is the currently active plan")
	ErrPlanNotBillable      = NewDomainError(ErrorCodePlanNotBillable, "target plan has no billing price configured")
	ErrPlanNotFound         = NewDomainError(ErrorCodePlanNotFound, "plan not found")
	ErrSubscriptionNotFound = NewDomainError(ErrorCodeSubscriptionNotFound, "subscription not found")

	ErrValidationFailed        = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrValidationMissingField  = NewDomainError(ErrorCodeValidationMissingField, "required field missing")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
