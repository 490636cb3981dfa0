// Package course defines the canonical identity of a bookable course.
//
// The club's booking platform hosts several facilities on one tee sheet, so
// every slot has to be attributed to a course before it may be booked.
// Attribution happens once, at catalog build time; the filter only ever
// reads the precomputed tag.
package course

import (
	"regexp"
	"strconv"
	"strings"
)

// Identity names one facility on the booking platform.
type Identity struct {
	// Name is the canonical display name, e.g. "Northgate".
	Name string
	// Aliases are alternative spellings accepted in lenient matching.
	Aliases []string
	// DropdownValue is the value attribute of the course's checkbox or
	// option in the selection dropdown.
	DropdownValue string
	// SheetIndex is the portlet's teeTimeCourses index for this course.
	// -1 when unknown.
	SheetIndex int
}

// Equal compares canonical identity, case-insensitively.
func (id Identity) Equal(o Identity) bool {
	return strings.EqualFold(id.Name, o.Name)
}

// MatchesText reports whether s names this course. Strict matching accepts
// only the canonical name; lenient matching also accepts aliases and
// substring containment.
func (id Identity) MatchesText(s string, lenient bool) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	name := strings.ToLower(id.Name)
	if s == name || strings.Contains(s, name) {
		return true
	}
	if !lenient {
		return false
	}
	for _, a := range id.Aliases {
		a = strings.ToLower(a)
		if s == a || strings.Contains(s, a) {
			return true
		}
	}
	return false
}

// sheetIndexRe extracts the course index from a Northstar portlet element
// id such as
// "_teeTimePortlet_WAR_northstarportlet_:teeTimeForm:teeTimeCourses:0:teeTimeSlots:67:slotTee:0:slotTeeDIV".
var sheetIndexRe = regexp.MustCompile(`teeTimeCourses:(\d+):`)

// SheetIndexFromElementID extracts the teeTimeCourses index embedded in a
// slot element id. The second return is false when the id carries no
// course information.
func SheetIndexFromElementID(elementID string) (int, bool) {
	m := sheetIndexRe.FindStringSubmatch(elementID)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// BySheetIndex finds the identity with the given sheet index.
func BySheetIndex(courses []Identity, idx int) (Identity, bool) {
	for _, c := range courses {
		if c.SheetIndex == idx {
			return c, true
		}
	}
	return Identity{}, false
}

// ByName finds a course by canonical name or alias.
func ByName(courses []Identity, name string) (Identity, bool) {
	for _, c := range courses {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	for _, c := range courses {
		for _, a := range c.Aliases {
			if strings.EqualFold(a, name) {
				return c, true
			}
		}
	}
	return Identity{}, false
}
