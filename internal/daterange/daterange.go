// Package daterange models calendar dates and half-open date ranges.
package daterange

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Layout is the wire and storage format of a Date.
const Layout = "2006-01-02"

// ErrEmptyRange is returned when a range does not end after it starts.
var ErrEmptyRange = errors.New("end date must be after start date")

// Date is a calendar day with no time of day, normalised to UTC midnight.
// The zero Date means "no date"; 0001-01-01 is still a valid day.
type Date struct {
	t     time.Time
	valid bool
}

// NewDate truncates t to its calendar day in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), valid: true}
}

// Today returns the current calendar day according to now.
func Today(now func() time.Time) Date {
	return NewDate(now())
}

// Parse reads a YYYY-MM-DD date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t, valid: true}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return !d.valid }

func (d Date) Time() time.Time { return d.t }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n), valid: d.valid} }

// AddMonths follows time.AddDate normalisation, so Jan 31 + 1 month is Mar 2 or 3.
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0), valid: d.valid} }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateValue lets pgx encode a Date into a date column.
func (d Date) DateValue() (pgtype.Date, error) {
	if d.IsZero() {
		return pgtype.Date{}, nil
	}
	return pgtype.Date{Time: d.t, Valid: true}, nil
}

// ScanDate lets pgx decode a date column into a Date.
func (d *Date) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		*d = Date{}
		return nil
	}
	if v.InfinityModifier != pgtype.Finite {
		return fmt.Errorf("cannot scan infinite date into daterange.Date")
	}
	*d = NewDate(v.Time)
	return nil
}

// Overlaps reports whether [startA, endA) and [startB, endB) share a day.
// Touching ranges, where one ends on the day the other starts, do not overlap.
func Overlaps(startA, endA, startB, endB Date) bool {
	return startA.Before(endB) && endA.After(startB)
}

// Range is a half-open span of days [Start, End).
type Range struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// New builds a non-empty range.
func New(start, end Date) (Range, error) {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return Range{}, ErrEmptyRange
	}
	return Range{Start: start, End: end}, nil
}

// ParseRange parses both ends and validates the result.
func ParseRange(start, end string) (Range, error) {
	s, err := Parse(start)
	if err != nil {
		return Range{}, err
	}
	e, err := Parse(end)
	if err != nil {
		return Range{}, err
	}
	return New(s, e)
}

func (r Range) Overlaps(o Range) bool {
	return Overlaps(r.Start, r.End, o.Start, o.End)
}

// Days is the number of nights covered, which is what a rental charges for.
// Both ends sit on UTC midnight, so the second difference divides evenly.
// time.Duration is avoided because it saturates past ~292 years.
func (r Range) Days() int {
	return int((r.End.t.Unix() - r.Start.t.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

func (r Range) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + ")"
}
