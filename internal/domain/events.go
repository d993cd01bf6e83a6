package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType is the routing key of a domain event
type EventType string

const (
	EventPaymentStatusChanged    EventType = "payment.status_changed"
	EventPaymentPaid             EventType = "payment.paid"
	EventPaymentRecurringCreated EventType = "payment.recurring_generated"
	EventPaymentOverdueReminder  EventType = "payment.overdue_reminder"
)

// Event is an immutable fact emitted after a change has been persisted
type Event struct {
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
}

// PaymentStatusChanged is the payload of payment.status_changed and payment.paid
type PaymentStatusChanged struct {
	PaymentID string        `json:"payment_id"`
	FirmID    string        `json:"firm_id"`
	ClientID  string        `json:"client_id,omitempty"`
	From      PaymentStatus `json:"from"`
	To        PaymentStatus `json:"to"`
}

// RecurringPaymentGenerated is the payload of payment.recurring_generated
type RecurringPaymentGenerated struct {
	DueDate         time.Time `json:"due_date"`
	PaymentID       string    `json:"payment_id"`
	ParentPaymentID string    `json:"parent_payment_id"`
	FirmID          string    `json:"firm_id"`
}

// OverdueReminder is the payload of payment.overdue_reminder
type OverdueReminder struct {
	DueDate     time.Time       `json:"due_date"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentID   string          `json:"payment_id"`
	FirmID      string          `json:"firm_id"`
	ClientID    string          `json:"client_id,omitempty"`
	Currency    string          `json:"currency"`
	DaysOverdue int             `json:"days_overdue"`
}
