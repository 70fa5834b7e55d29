package generic

import (
	"time"
)

// =============================================================================
// BUSINESS TIMEZONE - The operational day is JST
// =============================================================================

// Tokyo is the fixed UTC+9 zone used for every business-day boundary.
// JST has no daylight saving, so a fixed zone avoids a tzdata dependency.
var Tokyo = time.FixedZone("Asia/Tokyo", 9*60*60)

// =============================================================================
// DATE - Calendar date in ISO YYYY-MM-DD form
// =============================================================================

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// Date is a calendar date formatted as YYYY-MM-DD.
//
// Dates compare lexicographically, which is only correct while every value
// has the exact same layout. Construct them with ParseDate or DateOf at the
// boundary; a literal Date("2024-1-5") will compare wrongly.
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return "", &ValidationError{Field: "date", Value: s, Err: ErrInvalidDate}
	}
	return Date(s), nil
}

// MustParseDate is ParseDate for constants and tests. It panics on bad input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the JST business day containing t.
func DateOf(t time.Time) Date {
	return Date(t.In(Tokyo).Format(DateLayout))
}

// Comparison
func (d Date) Before(other Date) bool        { return d < other }
func (d Date) After(other Date) bool         { return d > other }
func (d Date) BeforeOrEqual(other Date) bool { return d <= other }
func (d Date) AfterOrEqual(other Date) bool  { return d >= other }
func (d Date) IsZero() bool                  { return d == "" }
func (d Date) String() string                { return string(d) }

// Time returns midnight JST at the start of d.
func (d Date) Time() (time.Time, error) {
	return time.ParseInLocation(DateLayout, string(d), Tokyo)
}

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] date range.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if d is within the period.
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Validate rejects periods whose end is before the start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PreviousMonth returns the calendar month before the JST day containing now.
// The settlement job closes the previous month.
func PreviousMonth(now time.Time) Period {
	local := now.In(Tokyo)
	firstOfThis := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, Tokyo)
	lastOfPrev := firstOfThis.AddDate(0, 0, -1)
	firstOfPrev := time.Date(lastOfPrev.Year(), lastOfPrev.Month(), 1, 0, 0, 0, 0, Tokyo)
	return Period{Start: DateOf(firstOfPrev), End: DateOf(lastOfPrev)}
}
