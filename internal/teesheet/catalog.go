package teesheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/course"
	"github.com/example/teetime-agent/internal/domschema"
)

// maxScrollRounds bounds the pre-scroll loop over the virtualized list.
const maxScrollRounds = 20

// Catalog enumerates the slots currently on the sheet. The list widget is
// virtualized, so the page must be scrolled until the item count stops
// growing before anything is read.
type Catalog struct {
	res *domschema.Resolver
	log *zap.Logger
}

func NewCatalog(res *domschema.Resolver, log *zap.Logger) *Catalog {
	return &Catalog{res: res, log: log}
}

// Build scrolls the sheet to the end and extracts every rendered slot.
// Slots whose row text carries no recognizable time are skipped; a row we
// cannot time is a row we cannot book against a request.
func (c *Catalog) Build(page playwright.Page) ([]Slot, error) {
	scope := domschema.PageScope(page)

	if err := c.scrollToEnd(scope); err != nil {
		return nil, err
	}

	items, err := c.res.ResolveAll(scope, "slots.item")
	if err != nil {
		return nil, fmt.Errorf("enumerate slots: %w", err)
	}

	slots := make([]Slot, 0, len(items))
	skipped := 0
	for _, item := range items {
		slot, ok := c.readSlot(item)
		if !ok {
			skipped++
			continue
		}
		slots = append(slots, slot)
	}
	c.log.Info("catalog built",
		zap.Int("slots", len(slots)), zap.Int("skipped", skipped))
	return slots, nil
}

// scrollToEnd keeps scrolling the last item into view until two
// consecutive rounds see the same count.
func (c *Catalog) scrollToEnd(scope domschema.Scope) error {
	prev := -1
	for round := 0; round < maxScrollRounds; round++ {
		items, err := c.res.ResolveAll(scope, "slots.item")
		if err != nil {
			// An empty sheet is a valid state; the filter will simply
			// find no candidates.
			return nil
		}
		if len(items) == prev {
			return nil
		}
		prev = len(items)
		if err := items[len(items)-1].ScrollIntoViewIfNeeded(); err != nil {
			return fmt.Errorf("scroll tee sheet: %w", err)
		}
		time.Sleep(300 * time.Millisecond)
	}
	c.log.Warn("tee sheet still growing after max scroll rounds", zap.Int("items", prev))
	return nil
}

func (c *Catalog) readSlot(item playwright.Locator) (Slot, bool) {
	text, err := item.TextContent()
	if err != nil {
		return Slot{}, false
	}
	t, ok := ParseTimeLabel(text)
	if !ok {
		return Slot{}, false
	}

	itemScope := domschema.LocatorScope(item)

	freeSeats := 0
	if spans, err := c.res.ResolveAll(itemScope, "slots.free_span"); err == nil {
		freeSeats = len(spans)
	}
	hasEmpty := c.res.Present(itemScope, "slots.empty_marker")
	hasReserved := c.res.Present(itemScope, "slots.reserved_marker")

	id, _ := item.GetAttribute("id")
	slot := Slot{
		Time:        t,
		ElementID:   id,
		CourseIndex: c.courseIndexOf(item, id),
		Capacity:    freeSeats,
		State:       Classify(hasEmpty, hasReserved, freeSeats),
	}
	if slot.State == StateEmpty && slot.Capacity == 0 {
		// Fully open rows sometimes render the marker without per-seat
		// spans; an empty row means the whole foursome is available.
		slot.Capacity = 4
	}
	if slot.CourseIndex < 0 {
		slot.CourseText = c.nearestHeader(item)
	}
	return slot, true
}

// courseIndexOf recovers the sheet index from the element ids inside the
// row. The portlet embeds it as teeTimeCourses:<n>: in every action id,
// which is the strongest course signal the page offers.
func (c *Catalog) courseIndexOf(item playwright.Locator, id string) int {
	if idx, ok := course.SheetIndexFromElementID(id); ok {
		return idx
	}
	itemScope := domschema.LocatorScope(item)
	if links, err := c.res.ResolveAll(itemScope, "slots.reserve_button"); err == nil {
		for _, link := range links {
			id, err := link.GetAttribute("id")
			if err != nil {
				continue
			}
			if idx, ok := course.SheetIndexFromElementID(id); ok {
				return idx
			}
		}
	}
	return -1
}

// nearestHeader walks up a bounded number of ancestors looking for a
// section header naming the course. Weaker than an element-id index, so
// the result is only advisory.
func (c *Catalog) nearestHeader(item playwright.Locator) string {
	cur := item
	for depth := 0; depth < 10; depth++ {
		cur = cur.Locator("xpath=..")
		header := cur.Locator("h1, h2, h3, h4, .course-name, .course-header").First()
		n, err := header.Count()
		if err != nil || n == 0 {
			continue
		}
		text, err := header.TextContent()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(text)
	}
	return ""
}
