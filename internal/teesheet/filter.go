package teesheet

import (
	"errors"
	"sort"

	"github.com/example/teetime-agent/internal/course"
	"github.com/example/teetime-agent/internal/timing"
)

// ErrSlotUnavailable means no slot on the sheet satisfies the request:
// wrong course, full, or outside the fallback window.
var ErrSlotUnavailable = errors.New("no bookable slot within window")

// Filter selects and orders candidate slots for one request.
type Filter struct {
	Course  course.Identity
	Lenient bool

	Players   int
	Requested timing.TimeOfDay
	// WindowMinutes bounds how far from the requested time a candidate
	// may be, in either direction. Zero means exact time only.
	WindowMinutes int

	// Exclude holds "HH:MM" times already tried or already booked during
	// this batch; candidates at those times are skipped.
	Exclude map[string]bool
}

// matchesCourse applies the course policy. An index recovered from
// element ids is authoritative. Header text is a weaker signal: strict
// mode accepts only a canonical-name match and rejects rows with no
// course signal at all, lenient mode also accepts aliases and rows whose
// course could not be determined.
func (f Filter) matchesCourse(s Slot) bool {
	if s.CourseIndex >= 0 {
		return s.CourseIndex == f.Course.SheetIndex
	}
	if s.CourseText == "" {
		return f.Lenient
	}
	return f.Course.MatchesText(s.CourseText, f.Lenient)
}

// Candidates returns the bookable slots for this request, ordered by
// distance from the requested time, earlier first on ties. The requested
// time itself, when present and bookable, is always first.
func (f Filter) Candidates(slots []Slot) []Slot {
	var out []Slot
	for _, s := range slots {
		if !s.Bookable(f.Players) {
			continue
		}
		if !f.matchesCourse(s) {
			continue
		}
		if f.Exclude[s.Time.String()] {
			continue
		}
		if timing.MinutesApart(s.Time, f.Requested) > f.WindowMinutes {
			continue
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di := timing.MinutesApart(out[i].Time, f.Requested)
		dj := timing.MinutesApart(out[j].Time, f.Requested)
		if di != dj {
			return di < dj
		}
		return out[i].Time.Minutes() < out[j].Time.Minutes()
	})
	return out
}
