package timeutil

import "time"

// DateLayout is the wire format for calendar dates (due dates, payment dates)
const DateLayout = "2006-01-02"

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// ParseDate parses a date string and returns a UTC time
func ParseDate(layout, value string) (time.Time, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// StartOfDay returns the start of the day (midnight) in UTC
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in UTC
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, time.UTC)
}

// ToUTC converts a time.Time to UTC if it isn't already
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// DateBefore reports whether the calendar day of a is strictly before the
// calendar day of b. Time of day is ignored.
func DateBefore(a, b time.Time) bool {
	return StartOfDay(a).Before(StartOfDay(b))
}

// AddMonthsClamped advances t by the given number of months, keeping the
// day of month and clamping to the last day of the target month.
// Jan 31 + 1 month is Feb 28 (or Feb 29 in a leap year), never Mar 2/3
// as time.AddDate would produce.
func AddMonthsClamped(t time.Time, months int) time.Time {
	t = t.UTC()
	year, month, day := t.Date()

	// Normalize to the first of the target month, then clamp the day.
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := daysIn(first.Year(), first.Month())
	if day > last {
		day = last
	}

	hour, min, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), time.UTC)
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Clock supplies "now". Inject it instead of calling Now() directly wherever
// behaviour depends on the current date.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return Now()
}

// FixedClock always returns the same instant. Used in tests and in the admin
// CLI when evaluating "as of" a given date.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant in UTC
func (c FixedClock) Now() time.Time {
	return c.At.UTC()
}
