package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestDomainErrors_PaymentRuleErrors tests the payment lifecycle rule violations
func TestDomainErrors_PaymentRuleErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"illegal_transition", ErrIllegalTransition, "not reachable"},
		{"terminal_state", ErrTerminalState, "terminal state"},
		{"missing_evidence", ErrMissingEvidence, "invoice required"},
		{"evidence_withdrawal", ErrEvidenceWithdrawal, "cannot be detached"},
		{"invalid_frequency", ErrInvalidFrequency, "frequency"},
		{"client_not_found", ErrClientNotFound, "client not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("expected error to be defined, got nil")
			}
			if !strings.Contains(strings.ToLower(tt.err.Error()), tt.contains) {
				t.Errorf("error message %q does not contain %q", tt.err.Error(), tt.contains)
			}
			if !IsRuleViolation(tt.err) {
				t.Errorf("expected %v to be a rule violation", tt.err)
			}
		})
	}
}

// TestDomainErrors_PlanErrors tests plan change errors
func TestDomainErrors_PlanErrors(t *testing.T) {
	if !IsRuleViolation(ErrNoOpSamePlan) {
		t.Errorf("expected ErrNoOpSamePlan to be a rule violation")
	}
	if !IsRuleViolation(ErrPlanNotBillable) {
		t.Errorf("expected ErrPlanNotBillable to be a rule violation")
	}
	if !IsNotFoundError(ErrPlanNotFound) || !IsNotFoundError(ErrSubscriptionNotFound) {
		t.Errorf("expected plan and subscription lookups to be not-found errors")
	}
}

// TestDomainErrors_Categories tests that each code lands in exactly the expected category
func TestDomainErrors_Categories(t *testing.T) {
	tests := []struct {
		err        error
		notFound   bool
		rule       bool
		validation bool
	}{
		{ErrPaymentNotFound, true, false, false},
		{ErrDocumentNotFound, true, false, false},
		{ErrIllegalTransition, false, true, false},
		{ErrConcurrencyConflict, false, false, false},
		{ErrRecordLocked, false, false, false},
		{ErrValidationFailed, false, false, true},
		{ErrValidationAmountInvalid, false, false, true},
		{ErrValidationMissingField, false, false, true},
		{ErrInternalError, false, false, false},
		{errors.New("plain"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := IsNotFoundError(tt.err); got != tt.notFound {
				t.Errorf("IsNotFoundError = %v, want %v", got, tt.notFound)
			}
			if got := IsRuleViolation(tt.err); got != tt.rule {
				t.Errorf("IsRuleViolation = %v, want %v", got, tt.rule)
			}
			if got := IsValidationError(tt.err); got != tt.validation {
				t.Errorf("IsValidationError = %v, want %v", got, tt.validation)
			}
		})
	}
}

// TestDomainErrors_Wrapping tests errors.Is and errors.As through fmt wrapping
func TestDomainErrors_Wrapping(t *testing.T) {
	base := NewDomainError(ErrorCodeMissingEvidence, "payment pay-1 has no invoice").
		WithDetail("payment_id", "pay-1")
	wrapped := fmt.Errorf("transition failed: %w", base)

	if !errors.Is(wrapped, ErrMissingEvidence) {
		t.Errorf("errors.Is should match the sentinel by code")
	}
	if errors.Is(wrapped, ErrIllegalTransition) {
		t.Errorf("errors.Is should not match a different code")
	}

	var domainErr *DomainError
	if !errors.As(wrapped, &domainErr) {
		t.Fatalf("errors.As should find the DomainError")
	}
	if domainErr.Details["payment_id"] != "pay-1" {
		t.Errorf("details lost through wrapping: %v", domainErr.Details)
	}
	if GetErrorCode(wrapped) != ErrorCodeMissingEvidence {
		t.Errorf("GetErrorCode = %q", GetErrorCode(wrapped))
	}
	if len(ErrMissingEvidence.Details) != 0 {
		t.Errorf("sentinel must not be mutated, got details %v", ErrMissingEvidence.Details)
	}
}

// TestDomainErrors_WrapError tests that the cause is preserved and rendered
func TestDomainErrors_WrapError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrorCodeDatabaseError, "failed to load payment", cause)

	if !errors.Is(err, cause) {
		t.Errorf("wrapped cause should be reachable")
	}
	want := "INTERNAL_DATABASE_ERROR: failed to load payment: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if GetErrorCode(cause) != "" {
		t.Errorf("plain errors have no code")
	}
}

// TestDomainErrors_UniqueCodes tests that sentinels do not share a code
func TestDomainErrors_UniqueCodes(t *testing.T) {
	all := []*DomainError{
		ErrIllegalTransition, ErrTerminalState, ErrMissingEvidence, ErrEvidenceWithdrawal,
		ErrInvalidFrequency, ErrPaymentNotFound, ErrDocumentNotFound, ErrClientNotFound,
		ErrConcurrencyConflict, ErrRecordLocked, ErrNoOpSamePlan, ErrPlanNotBillable,
		ErrPlanNotFound, ErrSubscriptionNotFound, ErrValidationFailed, ErrValidationAmountInvalid,
		ErrValidationMissingField, ErrInternalError, ErrDatabaseError,
	}

	seen := make(map[ErrorCode]bool)
	for _, err := range all {
		if seen[err.Code] {
			t.Errorf("duplicate code %q", err.Code)
		}
		seen[err.Code] = true
	}
}

// TestDomainErrors_SwitchCase tests the code-based switch handlers use
func TestDomainErrors_SwitchCase(t *testing.T) {
	classify := func(err error) string {
		switch GetErrorCode(err) {
		case ErrorCodeTerminalState, ErrorCodeIllegalTransition:
			return "conflict"
		case ErrorCodePaymentNotFound:
			return "not_found"
		default:
			return "other"
		}
	}

	if got := classify(fmt.Errorf("wrap: %w", ErrTerminalState)); got != "conflict" {
		t.Errorf("got %q", got)
	}
	if got := classify(ErrPaymentNotFound); got != "not_found" {
		t.Errorf("got %q", got)
	}
	if got := classify(errors.New("boom")); got != "other" {
		t.Errorf("got %q", got)
	}
}
