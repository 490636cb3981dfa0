// Package teesheet reads the club's virtualized tee sheet: navigating to
// a course and date, cataloguing the rendered slots, and filtering them
// against a booking request.
package teesheet

import (
	"regexp"
	"strings"

	"github.com/example/teetime-agent/internal/timing"
)

// State classifies a slot row.
type State string

const (
	// StateEmpty means every seat in the row is open.
	StateEmpty State = "empty"
	// StatePartial means the row is partially filled but still has open
	// seats.
	StatePartial State = "partial"
	// StateReserved means the row is fully taken.
	StateReserved State = "reserved"
)

// Slot is one tee-time row as rendered on the sheet.
type Slot struct {
	Time timing.TimeOfDay

	// ElementID is the row element's id attribute, when it has one. It
	// pins the slot to its exact row: several courses render the same
	// clock time on one sheet.
	ElementID string

	// CourseIndex is the sheet index recovered from element ids, or -1
	// when no id in the row carried one.
	CourseIndex int
	// CourseText is the nearest section header text, used as a weaker
	// course signal when CourseIndex is -1.
	CourseText string

	// Capacity is the number of open seats.
	Capacity int
	State    State
}

// Bookable reports whether the slot can take a party of n.
func (s Slot) Bookable(n int) bool {
	return s.State != StateReserved && s.Capacity >= n
}

var timeLabelRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*([AaPp])\.?[Mm]?\b`)

// ParseTimeLabel pulls the first clock time out of a slot row's text.
// The sheet renders labels like "7:30 AM", "07:30AM" and "7:30 a.m."
// depending on the widget; all are accepted.
func ParseTimeLabel(s string) (timing.TimeOfDay, bool) {
	m := timeLabelRe.FindStringSubmatch(s)
	if m == nil {
		// Bare 24h labels ("14:10") with no meridiem.
		if t, err := timing.ParseTimeOfDay(strings.TrimSpace(s)); err == nil {
			return t, true
		}
		return timing.TimeOfDay{}, false
	}
	label := m[1] + ":" + m[2] + " " + strings.ToUpper(m[3]) + "M"
	t, err := timing.ParseTimeOfDay(label)
	if err != nil {
		return timing.TimeOfDay{}, false
	}
	return t, true
}

// Classify derives a slot's state from its rendered markers. freeSeats is
// the count of open-seat spans in the row.
func Classify(hasEmptyMarker, hasReservedMarker bool, freeSeats int) State {
	switch {
	case hasEmptyMarker:
		return StateEmpty
	case freeSeats > 0:
		return StatePartial
	default:
		// No open seats and no explicit marker: treat as taken rather
		// than risk clicking into a row we cannot book.
		return StateReserved
	}
}
