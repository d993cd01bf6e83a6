package ports

import "time"

// Clock supplies the current instant. Anything that depends on "today"
// (overdue derivation, payment dates, recurrence) reads it from here.
type Clock interface {
	Now() time.Time
}
