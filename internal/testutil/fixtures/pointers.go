// Package fixtures provides test data builders and helpers.
package fixtures

import (
	"time"

	"github.com/kevin07696/clientledger/internal/domain"
)

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to the given int64.
func Int64Ptr(i int64) *int64 {
	return &i
}

// TimePtr returns a pointer to the given time.Time.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// FrequencyPtr returns a pointer to the given recurring frequency.
func FrequencyPtr(f domain.RecurringFrequency) *domain.RecurringFrequency {
	return &f
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
