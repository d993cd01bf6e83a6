package payment

import (
	"time"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/pkg/timeutil"
)

// IsOverdue derives the overdue flag at read time. PAID and CANCELED payments
// are never overdue; otherwise the due date must fall on a day before now.
// The stored status is not consulted beyond the terminal check and never
// rewritten.
func IsOverdue(p *domain.Payment, now time.Time) bool {
	if p.Status.IsTerminal() {
		return false
	}
	return timeutil.DateBefore(p.DueDate, now)
}

// DaysOverdue returns the number of whole days past the due date, or 0 when
// the payment is not overdue
func DaysOverdue(p *domain.Payment, now time.Time) int {
	if !IsOverdue(p, now) {
		return 0
	}
	diff := timeutil.StartOfDay(now).Sub(timeutil.StartOfDay(p.DueDate))
	return int(diff.Hours() / 24)
}
