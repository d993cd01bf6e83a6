package payment

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
	"github.com/kevin07696/clientledger/pkg/timeutil"
)

// Transition is an ordered pair of statuses
type Transition struct {
	From domain.PaymentStatus
	To   domain.PaymentStatus
}

type transitionRule struct {
	// evidence is the kind the caller must supply; domain.EvidenceNone means any
	evidence domain.EvidenceKind
	// invoiceGate runs HasRequiredEvidence before entering the target
	invoiceGate bool
	// needsInvoiceDocument requires an invoice-flagged document regardless of RequiresInvoice
	needsInvoiceDocument bool
	// needsRequiresInvoice rejects the move for payments that do not require an invoice
	needsRequiresInvoice bool
}

// transitions lists every caller-initiated move except cancellation, which is
// allowed from any non-terminal status. OVERDUE only appears as a source for
// rows persisted before overdue became a derived flag.
var transitions = map[Transition]transitionRule{
	{domain.PaymentStatusPending, domain.PaymentStatusAwaitingInvoice}:       {needsRequiresInvoice: true},
	{domain.PaymentStatusPending, domain.PaymentStatusReadyToPay}:            {evidence: domain.EvidenceDocumentAttached, needsInvoiceDocument: true},
	{domain.PaymentStatusAwaitingInvoice, domain.PaymentStatusReadyToPay}:    {evidence: domain.EvidenceDocumentAttached, needsInvoiceDocument: true},
	{domain.PaymentStatusPending, domain.PaymentStatusPaid}:                  {invoiceGate: true},
	{domain.PaymentStatusReadyToPay, domain.PaymentStatusPaid}:               {invoiceGate: true},
	{domain.PaymentStatusReadyToPay, domain.PaymentStatusAwaitingValidation}: {evidence: domain.EvidenceProofOfPayment},
	{domain.PaymentStatusAwaitingValidation, domain.PaymentStatusPaid}:       {evidence: domain.EvidenceApproval, invoiceGate: true},
	{domain.PaymentStatusOverdue, domain.PaymentStatusPaid}:                  {invoiceGate: true},
}

// CanTransition reports whether the table allows from → to, ignoring evidence
func CanTransition(from, to domain.PaymentStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == domain.PaymentStatusCanceled {
		return true
	}
	_, ok := transitions[Transition{from, to}]
	return ok
}

// ValidTransitionsFrom returns the statuses reachable from the given one
func ValidTransitionsFrom(from domain.PaymentStatus) []domain.PaymentStatus {
	targets := make([]domain.PaymentStatus, 0)
	if from.IsTerminal() {
		return targets
	}
	for t := range transitions {
		if t.From == from {
			targets = append(targets, t.To)
		}
	}
	targets = append(targets, domain.PaymentStatusCanceled)

	slices.Sort(targets)
	return targets
}

// TransitionResult carries the new snapshot and, when a recurring payment was
// paid, the generated next occurrence
type TransitionResult struct {
	Payment *domain.Payment
	Next    *domain.Payment
	From    domain.PaymentStatus
	// Changed is false for idempotent same-status requests
	Changed bool
}

// StateMachine applies lifecycle rules to payment snapshots. It holds no
// state between calls and never mutates its inputs.
type StateMachine struct {
	clock ports.Clock
	newID func() string
}

// NewStateMachine creates a state machine reading "now" from clock.
// newID supplies IDs for generated recurring payments; nil uses random UUIDs.
func NewStateMachine(clock ports.Clock, newID func() string) *StateMachine {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &StateMachine{clock: clock, newID: newID}
}

// AttemptTransition moves a payment to target if the table, evidence and
// document gate allow it. On success the returned payment is a new snapshot;
// on failure nothing is produced.
func (sm *StateMachine) AttemptTransition(p *domain.Payment, target domain.PaymentStatus, ev domain.Evidence) (*TransitionResult, error) {
	if p.Status.IsTerminal() {
		return nil, domain.NewDomainError(domain.ErrorCodeTerminalState, "payment is in a terminal state").
			WithDetail("payment_id", p.ID).
			WithDetail("status", string(p.Status)).
			WithDetail("target_status", string(target))
	}
	if !target.IsValid() || target == domain.PaymentStatusOverdue {
		return nil, illegalTransition(p, target, "target status cannot be requested")
	}
	if target == p.Status {
		return &TransitionResult{Payment: p.Clone(), From: p.Status}, nil
	}
	if !ev.Kind.IsValid() {
		return nil, illegalTransition(p, target, "unknown evidence kind")
	}

	if target != domain.PaymentStatusCanceled {
		rule, ok := transitions[Transition{p.Status, target}]
		if !ok {
			return nil, illegalTransition(p, target, "target status is not reachable from current status")
		}
		if err := checkRule(p, target, rule, ev); err != nil {
			return nil, err
		}
	}

	now := sm.clock.Now()
	next := p.Clone()
	next.Status = target
	next.UpdatedAt = now

	result := &TransitionResult{Payment: next, From: p.Status, Changed: true}

	switch target {
	case domain.PaymentStatusReadyToPay:
		if next.InvoiceAttachedAt == nil {
			attachedAt := now
			next.InvoiceAttachedAt = &attachedAt
		}
	case domain.PaymentStatusPaid:
		paidOn := timeutil.StartOfDay(now)
		next.PaymentDate = &paidOn
		if next.IsRecurring {
			generated, err := GenerateNext(next, sm.newID(), now)
			if err != nil {
				return nil, err
			}
			result.Next = generated
		}
	}

	return result, nil
}

func checkRule(p *domain.Payment, target domain.PaymentStatus, rule transitionRule, ev domain.Evidence) error {
	if rule.evidence != domain.EvidenceNone && ev.Kind != rule.evidence {
		return illegalTransition(p, target, "transition requires "+string(rule.evidence)+" evidence").
			WithDetail("evidence", string(ev.Kind))
	}
	if rule.needsRequiresInvoice && !p.RequiresInvoice {
		return illegalTransition(p, target, "payment does not require an invoice")
	}
	if rule.needsInvoiceDocument && !p.HasInvoiceDocument() {
		return missingEvidence(p, target)
	}
	if rule.invoiceGate && !HasRequiredEvidence(p) {
		return missingEvidence(p, target)
	}
	return nil
}

// AttachDocument appends a document reference. An invoice-flagged document
// records the invoice time if none is set and, when the payment is waiting
// for its invoice, moves it to READY_TO_PAY. Terminal payments accept
// documents without any status change.
func (sm *StateMachine) AttachDocument(p *domain.Payment, doc domain.Document) (*TransitionResult, error) {
	if doc.ID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "document id is required").
			WithDetail("field", "document_id")
	}
	if p.FindDocument(doc.ID) >= 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "document already attached").
			WithDetail("payment_id", p.ID).
			WithDetail("document_id", doc.ID)
	}

	now := sm.clock.Now()
	if doc.AttachedAt.IsZero() {
		doc.AttachedAt = now
	}

	next := p.Clone()
	next.AttachedDocuments = append(next.AttachedDocuments, doc)
	next.UpdatedAt = now
	result := &TransitionResult{Payment: next, From: p.Status}

	if !doc.IsInvoice {
		return result, nil
	}

	if next.InvoiceAttachedAt == nil {
		attachedAt := doc.AttachedAt
		next.InvoiceAttachedAt = &attachedAt
	}

	waitingForInvoice := p.Status == domain.PaymentStatusAwaitingInvoice ||
		(p.Status == domain.PaymentStatusPending && p.RequiresInvoice)
	if waitingForInvoice {
		next.Status = domain.PaymentStatusReadyToPay
		result.Changed = true
	}

	return result, nil
}

// DetachDocument removes a document reference. The last invoice-flagged
// document cannot be removed once a transition has relied on it; a
// replacement must be attached first. Status never changes.
func (sm *StateMachine) DetachDocument(p *domain.Payment, documentID string) (*domain.Payment, error) {
	idx := p.FindDocument(documentID)
	if idx < 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeDocumentNotFound, "document not attached to payment").
			WithDetail("payment_id", p.ID).
			WithDetail("document_id", documentID)
	}

	removingLastInvoice := p.AttachedDocuments[idx].IsInvoice && p.InvoiceDocumentCount() == 1
	if removingLastInvoice && invoiceReliedUpon(p.Status) {
		return nil, domain.NewDomainError(domain.ErrorCodeEvidenceWithdrawal, "invoice has been relied upon and cannot be detached").
			WithDetail("payment_id", p.ID).
			WithDetail("document_id", documentID).
			WithDetail("status", string(p.Status))
	}

	next := p.Clone()
	next.AttachedDocuments = slices.Delete(next.AttachedDocuments, idx, idx+1)
	next.UpdatedAt = sm.clock.Now()
	if p.AttachedDocuments[idx].IsInvoice {
		next.InvoiceAttachedAt = earliestInvoiceAt(next.AttachedDocuments)
	}

	return next, nil
}

// earliestInvoiceAt returns when the oldest attached invoice arrived, or nil
// when none is left
func earliestInvoiceAt(docs []domain.Document) *time.Time {
	var earliest *time.Time
	for _, d := range docs {
		if !d.IsInvoice {
			continue
		}
		if earliest == nil || d.AttachedAt.Before(*earliest) {
			at := d.AttachedAt
			earliest = &at
		}
	}
	return earliest
}

func invoiceReliedUpon(s domain.PaymentStatus) bool {
	switch s {
	case domain.PaymentStatusReadyToPay, domain.PaymentStatusAwaitingValidation, domain.PaymentStatusPaid:
		return true
	}
	return false
}

func illegalTransition(p *domain.Payment, target domain.PaymentStatus, reason string) *domain.DomainError {
	return domain.NewDomainError(domain.ErrorCodeIllegalTransition, "illegal transition").
		WithDetail("payment_id", p.ID).
		WithDetail("status", string(p.Status)).
		WithDetail("target_status", string(target)).
		WithDetail("reason", reason)
}

func missingEvidence(p *domain.Payment, target domain.PaymentStatus) *domain.DomainError {
	return domain.NewDomainError(domain.ErrorCodeMissingEvidence, "invoice required but not attached").
		WithDetail("payment_id", p.ID).
		WithDetail("target_status", string(target))
}
