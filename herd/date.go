package herd

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity point in time
// =============================================================================

// Date is a calendar day in UTC. The zero value means "absent": optional
// dates throughout the data model are represented as Date{} rather than
// pointers, and the store persists them as NULL columns.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today reads the wall clock. Business logic must never call this directly;
// the current date is injected as a parameter so tests can pin it. Today is
// for composition roots only.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO 8601 date (YYYY-MM-DD). An empty string parses to
// the zero (absent) Date.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, ErrInvalidArgument)
	}
	return DateOf(t), nil
}

// MustDate parses an ISO date and panics on failure. Test helper.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysBetween returns the whole days from one date to another.
func DaysBetween(from, to Date) int { return int(to.t.Sub(from.t).Hours() / 24) }

// Properties
func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Year() int    { return d.t.Year() }

// String formats as ISO 8601. The absent date formats as the empty string.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}
