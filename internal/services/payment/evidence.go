package payment

import "github.com/kevin07696/clientledger/internal/domain"

// HasRequiredEvidence reports whether a payment may enter a gated status.
// Payments that do not require an invoice always pass; the rest need at least
// one invoice-flagged document and a recorded attach time.
func HasRequiredEvidence(p *domain.Payment) bool {
	if !p.RequiresInvoice {
		return true
	}
	return p.HasInvoiceDocument() && p.InvoiceAttachedAt != nil
}
