package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	paymentColumns = `id, firm_id, payment_type, client_id, title, description, amount, currency,
	due_date, payment_date, status, requires_invoice, invoice_attached_at, attached_documents,
	is_recurring, recurring_frequency, parent_payment_id, version, created_at, updated_at`

	insertPaymentSQL = `INSERT INTO payments (` + paymentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	getPaymentSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	updatePaymentSQL = `UPDATE payments SET
	title = $3, description = $4, amount = $5, currency = $6, due_date = $7, payment_date = $8,
	status = $9, requires_invoice = $10, invoice_attached_at = $11, attached_documents = $12,
	is_recurring = $13, recurring_frequency = $14, updated_at = $15, version = version + 1
WHERE id = $1 AND version = $2`

	paymentExistsSQL = `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`

	listPaymentsSQL = `SELECT ` + paymentColumns + ` FROM payments
WHERE firm_id = $1
  AND ($2::text = '' OR client_id = $2)
  AND (cardinality($3::text[]) = 0 OR status = ANY($3::text[]))
  AND ($6::date IS NULL OR (status NOT IN ('PAID', 'CANCELED') AND due_date < $6::date))
ORDER BY due_date, id
LIMIT $4 OFFSET $5`

	listOpenDueBeforeSQL = `SELECT ` + paymentColumns + ` FROM payments
WHERE status NOT IN ('PAID', 'CANCELED')
  AND due_date < $1
  AND ($2::text = '' OR firm_id = $2)
  AND id > $3
ORDER BY id
LIMIT $4`
)

// PaymentRepository implements ports.PaymentRepository. Attached documents
// live in a JSONB column next to the payment so a snapshot is one row.
type PaymentRepository struct {
	db ports.DBPort
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db ports.DBPort) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) conn(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

// Create inserts a new payment at version 0
func (r *PaymentRepository) Create(ctx context.Context, tx ports.DBTX, payment *domain.Payment) error {
	amount, err := decimalToNumeric(payment.Amount)
	if err != nil {
		return err
	}
	docs, err := encodeDocuments(payment.AttachedDocuments)
	if err != nil {
		return err
	}

	_, err = r.conn(tx).Exec(ctx, insertPaymentSQL,
		payment.ID,
		payment.FirmID,
		string(payment.PaymentType),
		textPtr(payment.ClientID),
		payment.Title,
		payment.Description,
		amount,
		payment.Currency,
		pgtype.Date{Time: payment.DueDate, Valid: true},
		dateFromPtr(payment.PaymentDate),
		string(payment.Status),
		payment.RequiresInvoice,
		timestamptzFromPtr(payment.InvoiceAttachedAt),
		docs,
		payment.IsRecurring,
		frequencyText(payment.RecurringFrequency),
		textPtr(payment.ParentPaymentID),
		payment.Version,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return domain.NewDomainError(domain.ErrorCodeValidationFailed, "payment already exists").
				WithDetail("payment_id", payment.ID)
		case pgForeignKeyViolation:
			return domain.NewDomainError(domain.ErrorCodeClientNotFound, "client no longer exists").
				WithDetail("client_id", payment.GetClientID())
		}
		return dbError("failed to create payment", err)
	}

	return nil
}

// GetByID returns the payment snapshot
func (r *PaymentRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Payment, error) {
	p, err := scanPayment(r.conn(db).QueryRow(ctx, getPaymentSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewDomainError(domain.ErrorCodePaymentNotFound, "payment not found").
			WithDetail("payment_id", id)
	}
	if err != nil {
		return nil, dbError("failed to load payment", err)
	}
	return p, nil
}

// Update writes the snapshot if nobody else did since it was read and bumps
// payment.Version on success
func (r *PaymentRepository) Update(ctx context.Context, tx ports.DBTX, payment *domain.Payment) error {
	amount, err := decimalToNumeric(payment.Amount)
	if err != nil {
		return err
	}
	docs, err := encodeDocuments(payment.AttachedDocuments)
	if err != nil {
		return err
	}

	conn := r.conn(tx)
	tag, err := conn.Exec(ctx, updatePaymentSQL,
		payment.ID,
		payment.Version,
		payment.Title,
		payment.Description,
		amount,
		payment.Currency,
		pgtype.Date{Time: payment.DueDate, Valid: true},
		dateFromPtr(payment.PaymentDate),
		string(payment.Status),
		payment.RequiresInvoice,
		timestamptzFromPtr(payment.InvoiceAttachedAt),
		docs,
		payment.IsRecurring,
		frequencyText(payment.RecurringFrequency),
		payment.UpdatedAt,
	)
	if err != nil {
		return dbError("failed to update payment", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := conn.QueryRow(ctx, paymentExistsSQL, payment.ID).Scan(&exists); err != nil {
			return dbError("failed to check payment", err)
		}
		if !exists {
			return domain.NewDomainError(domain.ErrorCodePaymentNotFound, "payment not found").
				WithDetail("payment_id", payment.ID)
		}
		return domain.NewDomainError(domain.ErrorCodeConcurrencyConflict, "payment was modified concurrently").
			WithDetail("payment_id", payment.ID).
			WithDetail("expected_version", payment.Version)
	}

	payment.Version++
	return nil
}

// List returns payments of a firm ordered by due date
func (r *PaymentRepository) List(ctx context.Context, db ports.DBTX, filter ports.PaymentFilter) ([]*domain.Payment, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	rows, err := r.conn(db).Query(ctx, listPaymentsSQL,
		filter.FirmID,
		filter.ClientID,
		statuses,
		clampLimit(filter.Limit),
		max(filter.Offset, 0),
		pgtype.Date{Time: filter.OpenDueBefore, Valid: !filter.OpenDueBefore.IsZero()},
	)
	if err != nil {
		return nil, dbError("failed to list payments", err)
	}
	return collectPayments(rows)
}

// ListOpenDueBefore pages through non-terminal payments due before day
func (r *PaymentRepository) ListOpenDueBefore(ctx context.Context, db ports.DBTX, firmID string, day time.Time, afterID string, limit int32) ([]*domain.Payment, error) {
	rows, err := r.conn(db).Query(ctx, listOpenDueBeforeSQL,
		pgtype.Date{Time: day, Valid: true},
		firmID,
		afterID,
		clampLimit(limit),
	)
	if err != nil {
		return nil, dbError("failed to list overdue candidates", err)
	}
	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, dbError(fmt.Sprintf("failed to read payment %d", len(payments)), err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate payments", err)
	}
	return payments, nil
}

// scanPayment reads one row selected with paymentColumns
func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p                 domain.Payment
		paymentType       string
		status            string
		clientID          pgtype.Text
		amount            pgtype.Numeric
		dueDate           pgtype.Date
		paymentDate       pgtype.Date
		invoiceAttachedAt pgtype.Timestamptz
		docs              []byte
		frequency         pgtype.Text
		parentID          pgtype.Text
	)

	err := row.Scan(
		&p.ID,
		&p.FirmID,
		&paymentType,
		&clientID,
		&p.Title,
		&p.Description,
		&amount,
		&p.Currency,
		&dueDate,
		&paymentDate,
		&status,
		&p.RequiresInvoice,
		&invoiceAttachedAt,
		&docs,
		&p.IsRecurring,
		&frequency,
		&parentID,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, err
	}
	if p.AttachedDocuments, err = decodeDocuments(docs); err != nil {
		return nil, err
	}

	p.PaymentType = domain.PaymentType(paymentType)
	p.Status = domain.PaymentStatus(status)
	p.ClientID = ptrFromText(clientID)
	p.ParentPaymentID = ptrFromText(parentID)
	p.DueDate = dueDate.Time.UTC()
	p.PaymentDate = ptrFromDate(paymentDate)
	p.InvoiceAttachedAt = ptrFromTimestamptz(invoiceAttachedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if frequency.Valid {
		f := domain.RecurringFrequency(frequency.String)
		p.RecurringFrequency = &f
	}

	return &p, nil
}

func frequencyText(f *domain.RecurringFrequency) pgtype.Text {
	if f == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: string(*f), Valid: true}
}

func clampLimit(limit int32) int32 {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
