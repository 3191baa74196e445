package cycledate

import (
	"fmt"
	"time"
)

// Layout is the canonical cycle-date format used as the range key in the
// pairings table. Dates are always interpreted in UTC.
const Layout = "2006-01-02"

// Normalize truncates t to UTC midnight, the start of its cycle.
func Normalize(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Format renders t's cycle date as YYYY-MM-DD.
func Format(t time.Time) string {
	return Normalize(t).Format(Layout)
}

// Parse converts a YYYY-MM-DD string into its UTC midnight time.
// Empty input → zero time with no error (caller defaults to today).
func Parse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cycle date %q: %w", s, err)
	}
	return t, nil
}

// Window returns the [from, to) cycle-date strings covering the lookback
// window that ends at (and excludes) cycleDate.
func Window(cycleDate time.Time, lookbackDays int) (from, to string) {
	d := Normalize(cycleDate)
	return d.AddDate(0, 0, -lookbackDays).Format(Layout), d.Format(Layout)
}

// EndOfCycle returns the expiry timestamp for pairings created on cycleDate:
// the following UTC midnight.
func EndOfCycle(cycleDate time.Time) time.Time {
	return Normalize(cycleDate).AddDate(0, 0, 1)
}
