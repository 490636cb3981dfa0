// Package timing owns all scheduling arithmetic for the reservation window.
//
// The club publishes its tee sheet in course-local civil time ("6:30 AM,
// seven days out"). Everything else in the system runs on absolute instants.
// This package keeps the two apart at the type level: CivilDate and TimeOfDay
// are naive wall-clock values, time.Time is an instant, and the only way to
// cross between them is through the conversion functions here.
package timing

import (
	"fmt"
	"strings"
	"time"
)

// CivilDate is a calendar date with no time zone attached.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar date of t as observed in t's location.
func DateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// ParseDate parses a date in 2006-01-02 form.
func ParseDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// AddDays returns the date n days after d (negative n goes backward).
// Normalization is delegated to time.Date so month/year rollover is correct.
func (d CivilDate) AddDays(n int) CivilDate {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return DateOf(t)
}

func (d CivilDate) Before(o CivilDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d CivilDate) IsZero() bool { return d == CivilDate{} }

// Weekday reports the day of week of d.
func (d CivilDate) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// TimeOfDay is a naive wall-clock time, minute granularity. The tee sheet
// never exposes anything finer.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "15:04", "3:04 PM" and "03:04PM" forms, which
// covers both API input and the labels scraped off the tee sheet.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "3:04 PM", "3:04PM", "03:04 PM"} {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Clock12 formats t the way the tee sheet displays it, e.g. "07:30 AM".
func (t TimeOfDay) Clock12() string {
	return time.Date(2000, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format("03:04 PM")
}

// Minutes is the offset from midnight, used for fallback-window distance.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) IsZero() bool { return t == TimeOfDay{} }

// MinutesApart returns the absolute distance between two times of day.
func MinutesApart(a, b TimeOfDay) int {
	d := a.Minutes() - b.Minutes()
	if d < 0 {
		d = -d
	}
	return d
}

// Instant is the single conversion boundary from civil time to an absolute
// instant. DST gaps and overlaps resolve the way time.Date does, which
// matches how the club site itself behaves on changeover mornings.
func Instant(d CivilDate, t TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

// Window describes when a given calendar date becomes bookable.
type Window struct {
	DaysInAdvance int
	OpenHour      int
	OpenMinute    int
	Location      *time.Location
}

// OpenInstant computes the absolute instant at which reservations for
// requestedDate open: OpenHour:OpenMinute course-local on
// requestedDate - DaysInAdvance.
func (w Window) OpenInstant(requestedDate CivilDate) time.Time {
	openDate := requestedDate.AddDays(-w.DaysInAdvance)
	return Instant(openDate, TimeOfDay{Hour: w.OpenHour, Minute: w.OpenMinute}, w.Location)
}

// Due reports whether a scheduled execution instant has been reached.
// Both arguments are instants; time.Time comparison is frame-independent.
func Due(scheduledAt, now time.Time) bool {
	return !scheduledAt.After(now)
}
