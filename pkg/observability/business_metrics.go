package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment lifecycle metrics
	paymentTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Payment status transition attempts",
	}, []string{
		"from",   // current status
		"to",     // requested status
		"result", // applied, noop, rejected
	})

	paymentRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_rejections_total",
		Help: "Rejected payment operations by error code",
	}, []string{
		"operation", // transition, attach, detach, create
		"code",      // PAYMENT_ILLEGAL_TRANSITION, PAYMENT_MISSING_EVIDENCE, ...
	})

	paymentDocumentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_documents_total",
		Help: "Document references attached to or detached from payments",
	}, []string{
		"operation", // attach, detach
		"invoice",   // true, false
	})

	recurringGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_recurring_generated_total",
		Help: "Recurring payment occurrences generated on PAID",
	}, []string{
		"frequency",
	})

	paymentsOverdue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "payments_overdue",
		Help: "Non-terminal payments past their due date at the last sweep",
	}, []string{
		"firm_id",
	})

	overdueSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_overdue_sweep_duration_seconds",
		Help:    "Time to run one overdue sweep",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// Plan change metrics
	planChangeDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_change_decisions_total",
		Help: "Plan change resolutions by outcome",
	}, []string{
		"action", // REQUIRES_CHECKOUT, IN_PLACE_UPGRADE, IN_PLACE_DOWNGRADE, or an error code
	})

	// Event publishing metrics
	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_events_published_total",
		Help: "Domain events handed to the publisher",
	}, []string{
		"type",
		"status", // success, failed, skipped
	})

	// Record lock metrics
	lockAcquisitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "record_lock_acquisitions_total",
		Help: "Per-record lock acquisition outcomes",
	}, []string{
		"result", // acquired, contended, error
	})
)

// RecordPaymentTransition records a transition attempt
func RecordPaymentTransition(from, to, result string) {
	paymentTransitionsTotal.WithLabelValues(from, to, result).Inc()
}

// RecordPaymentRejection records a rejected operation by its error code
func RecordPaymentRejection(operation, code string) {
	paymentRejectionsTotal.WithLabelValues(operation, code).Inc()
}

// RecordPaymentDocument records an attach or detach
func RecordPaymentDocument(operation string, invoice bool) {
	flag := "false"
	if invoice {
		flag = "true"
	}
	paymentDocumentsTotal.WithLabelValues(operation, flag).Inc()
}

// RecordRecurringGenerated records a generated recurring occurrence
func RecordRecurringGenerated(frequency string) {
	recurringGeneratedTotal.WithLabelValues(frequency).Inc()
}

// UpdateOverduePayments sets the overdue gauge for one firm
func UpdateOverduePayments(firmID string, count float64) {
	paymentsOverdue.WithLabelValues(firmID).Set(count)
}

// ReplaceOverduePayments drops every firm series and sets the given counts.
// Firms missing from counts had no overdue payments.
func ReplaceOverduePayments(counts map[string]int) {
	paymentsOverdue.Reset()
	for firmID, n := range counts {
		paymentsOverdue.WithLabelValues(firmID).Set(float64(n))
	}
}

// ObserveOverdueSweep records how long a sweep took
func ObserveOverdueSweep(seconds float64) {
	overdueSweepDuration.Observe(seconds)
}

// RecordPlanChangeDecision records a resolver outcome
func RecordPlanChangeDecision(action string) {
	planChangeDecisionsTotal.WithLabelValues(action).Inc()
}

// RecordEventPublished records a publish attempt
func RecordEventPublished(eventType, status string) {
	eventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// RecordLockAcquisition records a per-record lock outcome
func RecordLockAcquisition(result string) {
	lockAcquisitionsTotal.WithLabelValues(result).Inc()
}
