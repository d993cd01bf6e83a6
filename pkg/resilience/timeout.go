package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines timeout values for the application's timeout hierarchy
//
// Timeout Hierarchy (from outermost to innermost):
//
//	HTTP Handler (30s)
//	  ↓
//	Service Layer (25s)
//	  ↓
//	Lock wait (2s) / Event publish (5s)
//	  ↓
//	Database Query (set on the pool)
//
// Each layer completes before its parent times out.
type TimeoutConfig struct {
	HTTPHandler time.Duration // Overall request timeout
	CronJob     time.Duration // Overdue sweep run

	Service  time.Duration // Service operation
	LockWait time.Duration // Waiting for a contended per-record lock
	Publish  time.Duration // Handing one event to the broker
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 30 * time.Second,
		CronJob:     5 * time.Minute,
		Service:     25 * time.Second,
		LockWait:    2 * time.Second,
		Publish:     5 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 5 * time.Second,
		CronJob:     30 * time.Second,
		Service:     4 * time.Second,
		LockWait:    500 * time.Millisecond,
		Publish:     time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// CronContext creates a context with timeout for cron jobs
func (tc *TimeoutConfig) CronContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.CronJob)
}

// ServiceContext creates a context with timeout for service layer operations
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// LockWaitContext bounds how long a caller waits for a contended record lock
func (tc *TimeoutConfig) LockWaitContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.LockWait)
}

// PublishContext bounds a single event publish
func (tc *TimeoutConfig) PublishContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Publish)
}
