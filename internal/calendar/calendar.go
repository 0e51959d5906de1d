// Package calendar holds the day arithmetic shared by every habit operation:
// truncation to the start of a day in the reference zone, weekday numbering
// (Sunday=0 .. Saturday=6), query-date parsing and the year grid used by the
// calendar summary.
//
// All persisted dates are the UTC instant of local midnight. Read and write
// paths must both go through StartOfDay so that equality lookups on
// days.date match exactly.
package calendar

import (
	"errors"
	"strings"
	"time"
)

// DateFormat is the wire format for plain dates (YYYY-MM-DD).
const DateFormat = "2006-01-02"

// ErrInvalidDate is returned by ParseDate for input that no accepted layout matches.
var ErrInvalidDate = errors.New("invalid date")

// Clock abstracts the wall clock so services can be tested at fixed instants.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now implements Clock.
func (f FixedClock) Now() time.Time { return time.Time(f) }

// StartOfDay returns midnight of t's calendar day in loc, expressed in UTC.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc).UTC()
}

// WeekDay returns the day of week of t in loc, Sunday=0 .. Saturday=6.
// This is the only weekday derivation in the service; both the day view and
// the summary aggregation call it.
func WeekDay(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	return int(t.In(loc).Weekday())
}

// layouts accepted by ParseDate, tried in order. Layouts without an offset are
// interpreted in the reference zone.
var layouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04:05", false},
	{DateFormat, false},
}

// ParseDate coerces a query value into an instant. It accepts RFC 3339
// timestamps, local date-times and plain YYYY-MM-DD dates.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if loc == nil {
		loc = time.Local
	}
	for _, l := range layouts {
		var (
			t   time.Time
			err error
		)
		if l.zoned {
			t, err = time.Parse(l.layout, s)
		} else {
			t, err = time.ParseInLocation(l.layout, s, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// FormatDate renders a stored day as YYYY-MM-DD in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateFormat)
}

// DatesFromYearBeginning lists every day from January 1st of now's year up to
// and including today, each as a StartOfDay value.
func DatesFromYearBeginning(now time.Time, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.Local
	}
	lt := now.In(loc)
	today := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	out := make([]time.Time, 0, lt.YearDay())
	// AddDate on a local midnight keeps DST transitions on calendar days.
	for d := time.Date(lt.Year(), time.January, 1, 0, 0, 0, 0, loc); !d.After(today); d = d.AddDate(0, 0, 1) {
		out = append(out, d.UTC())
	}
	return out
}
