package teesheet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/course"
	"github.com/example/teetime-agent/internal/domschema"
	"github.com/example/teetime-agent/internal/timing"
)

// ErrSelectionFailed means every interaction strategy for a navigation
// step ran out, or the step appeared to work but verification disagreed.
var ErrSelectionFailed = errors.New("selection failed")

// maxCalendarClicks bounds month navigation when the picker has no
// month/year dropdowns. Two years of clicking means something is wrong.
const maxCalendarClicks = 24

// Navigator drives course and date selection on the tee sheet. Every
// selection is verified before it is reported as done; a click that the
// site silently swallowed must not let a booking proceed against the
// wrong sheet.
type Navigator struct {
	res *domschema.Resolver
	log *zap.Logger
}

func NewNavigator(res *domschema.Resolver, log *zap.Logger) *Navigator {
	return &Navigator{res: res, log: log}
}

// SelectCourse switches the sheet to the given course. Strategies, in
// order: the checkbox multi-select dropdown, a native select, a plain
// text link. Whichever appears to work is then verified.
func (n *Navigator) SelectCourse(page playwright.Page, c course.Identity) error {
	scope := domschema.PageScope(page)

	if err := n.courseViaDropdown(page, c); err == nil {
		if n.verifyCourse(scope, c) {
			return nil
		}
		n.log.Warn("dropdown selection did not stick", zap.String("course", c.Name))
	}

	if err := n.courseViaNativeSelect(scope, c); err == nil {
		if n.verifyCourse(scope, c) {
			return nil
		}
		n.log.Warn("native select did not stick", zap.String("course", c.Name))
	}

	if err := n.courseViaTextLink(scope, c); err == nil {
		if n.verifyCourse(scope, c) {
			return nil
		}
	}

	return fmt.Errorf("%w: course %q", ErrSelectionFailed, c.Name)
}

func (n *Navigator) courseViaDropdown(page playwright.Page, c course.Identity) error {
	scope := domschema.PageScope(page)
	trigger, err := n.res.Resolve(scope, "course.dropdown_trigger")
	if err != nil {
		return err
	}
	if err := trigger.Click(); err != nil {
		return err
	}

	options, err := n.res.ResolveAll(scope, "course.option")
	if err != nil {
		return err
	}
	clicked := false
	for _, opt := range options {
		// Checkbox inputs carry no text of their own; read the label
		// around them.
		text, _ := opt.Locator("xpath=ancestor-or-self::label[1]").First().TextContent()
		if text == "" {
			text, _ = opt.TextContent()
		}
		if !c.MatchesText(text, true) {
			continue
		}
		if err := opt.Click(); err != nil {
			return err
		}
		clicked = true
		break
	}
	if !clicked {
		return fmt.Errorf("no option matched %q", c.Name)
	}

	if closeBtn, err := n.res.Resolve(scope, "course.dropdown_close"); err == nil {
		closeBtn.Click()
	} else {
		// Click away to dismiss the panel.
		page.Keyboard().Press("Escape")
	}
	return nil
}

func (n *Navigator) courseViaNativeSelect(scope domschema.Scope, c course.Identity) error {
	sel, err := n.res.Resolve(scope, "course.native_select")
	if err != nil {
		return err
	}
	_, err = sel.SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(c.DropdownValue),
	})
	if err != nil {
		_, err = sel.SelectOption(playwright.SelectOptionValues{
			Labels: playwright.StringSlice(c.Name),
		})
	}
	return err
}

func (n *Navigator) courseViaTextLink(scope domschema.Scope, c course.Identity) error {
	link, err := n.res.Resolve(scope, "course.text_link", c.Name)
	if err != nil {
		return err
	}
	return link.Click()
}

// verifyCourse checks that the page now reflects the requested course,
// via the select's current option or any rendered course name.
func (n *Navigator) verifyCourse(scope domschema.Scope, c course.Identity) bool {
	if opt, err := n.res.Resolve(scope, "course.selected_option"); err == nil {
		if text, err := opt.TextContent(); err == nil && c.MatchesText(text, true) {
			return true
		}
	}
	return n.res.Present(scope, "course.verify_text", strings.ToLower(c.Name))
}

// SelectDate moves the sheet to the given date. Strategies, in order:
// typing into a date input, driving the calendar picker, day tabs. The
// step is done only once tee-time rows for the new date materialize.
func (n *Navigator) SelectDate(page playwright.Page, d timing.CivilDate) error {
	scope := domschema.PageScope(page)

	if err := n.dateViaInput(scope, d); err == nil {
		if n.verifyDate(scope) {
			return nil
		}
		n.log.Warn("date input did not refresh the sheet", zap.String("date", d.String()))
	}

	if err := n.dateViaCalendar(scope, d); err == nil {
		if n.verifyDate(scope) {
			return nil
		}
	} else {
		n.log.Debug("calendar strategy failed", zap.Error(err))
	}

	if err := n.dateViaDayTabs(scope, d); err == nil {
		if n.verifyDate(scope) {
			return nil
		}
	}

	return fmt.Errorf("%w: date %s", ErrSelectionFailed, d)
}

func (n *Navigator) dateViaInput(scope domschema.Scope, d timing.CivilDate) error {
	input, err := n.res.Resolve(scope, "date.input")
	if err != nil {
		return err
	}
	formatted := fmt.Sprintf("%02d/%02d/%04d", int(d.Month), d.Day, d.Year)
	if err := input.Fill(formatted); err != nil {
		return err
	}
	if submit, err := n.res.Resolve(scope, "date.search_submit"); err == nil {
		return submit.Click()
	}
	return input.Press("Enter")
}

func (n *Navigator) dateViaCalendar(scope domschema.Scope, d timing.CivilDate) error {
	trigger, err := n.res.Resolve(scope, "date.calendar_trigger")
	if err != nil {
		return err
	}
	if err := trigger.Click(); err != nil {
		return err
	}
	if _, err := n.res.Resolve(scope, "date.calendar_popup"); err != nil {
		return err
	}

	if err := n.calendarJumpToMonth(scope, d); err != nil {
		if err := n.calendarStepToMonth(scope, d); err != nil {
			return err
		}
	}
	return n.calendarClickDay(scope, d.Day)
}

// calendarJumpToMonth uses the picker's month and year dropdowns when it
// has them.
func (n *Navigator) calendarJumpToMonth(scope domschema.Scope, d timing.CivilDate) error {
	monthSel, err := n.res.Resolve(scope, "date.month_select")
	if err != nil {
		return err
	}
	yearSel, err := n.res.Resolve(scope, "date.year_select")
	if err != nil {
		return err
	}
	// jQuery UI months are zero-based values; fall back to the label.
	if _, err := monthSel.SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(fmt.Sprintf("%d", int(d.Month)-1)),
	}); err != nil {
		if _, err := monthSel.SelectOption(playwright.SelectOptionValues{
			Labels: playwright.StringSlice(d.Month.String()),
		}); err != nil {
			return err
		}
	}
	_, err = yearSel.SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(fmt.Sprintf("%d", d.Year)),
	})
	return err
}

// calendarStepToMonth clicks next/prev until the header names the target
// month, bounded so a picker we cannot read does not loop forever.
func (n *Navigator) calendarStepToMonth(scope domschema.Scope, d timing.CivilDate) error {
	wantMonth := d.Month.String()
	wantYear := fmt.Sprintf("%d", d.Year)

	for i := 0; i < maxCalendarClicks; i++ {
		header, err := n.res.Resolve(scope, "date.calendar_header")
		if err != nil {
			return err
		}
		text, err := header.TextContent()
		if err != nil {
			return err
		}
		if strings.Contains(text, wantMonth) && strings.Contains(text, wantYear) {
			return nil
		}

		key := "date.nav_next"
		if headerAfterTarget(text, d) {
			key = "date.nav_prev"
		}
		nav, err := n.res.Resolve(scope, key)
		if err != nil {
			return err
		}
		if err := nav.Click(); err != nil {
			return err
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("calendar never reached %s %s", wantMonth, wantYear)
}

// headerAfterTarget guesses whether the displayed month is past the
// target, to decide between next and prev arrows.
func headerAfterTarget(header string, d timing.CivilDate) bool {
	shownYear := 0
	for _, f := range strings.Fields(header) {
		if len(f) == 4 {
			fmt.Sscanf(f, "%d", &shownYear)
		}
	}
	if shownYear == 0 {
		return false
	}
	if shownYear != d.Year {
		return shownYear > d.Year
	}
	for m := time.January; m <= time.December; m++ {
		if strings.Contains(header, m.String()) {
			return m > d.Month
		}
	}
	return false
}

// calendarClickDay clicks the day cell, skipping cells that belong to the
// adjacent month's spillover row.
func (n *Navigator) calendarClickDay(scope domschema.Scope, day int) error {
	cells, err := n.res.ResolveAll(scope, "date.day_cell", day)
	if err != nil {
		return err
	}
	for _, cell := range cells {
		class, _ := cell.GetAttribute("class")
		lc := strings.ToLower(class)
		if strings.Contains(lc, "other-month") || strings.Contains(lc, "old") ||
			strings.Contains(lc, "new") || strings.Contains(lc, "disabled") {
			continue
		}
		return cell.Click()
	}
	return fmt.Errorf("day %d not clickable in current month", day)
}

func (n *Navigator) dateViaDayTabs(scope domschema.Scope, d timing.CivilDate) error {
	tabs, err := n.res.ResolveAll(scope, "date.day_tab")
	if err != nil {
		return err
	}
	dayLabel := fmt.Sprintf("%d", d.Day)
	weekday := d.Weekday().String()[:3]
	for _, tab := range tabs {
		text, err := tab.TextContent()
		if err != nil {
			continue
		}
		if strings.Contains(text, dayLabel) || strings.Contains(text, weekday) {
			return tab.Click()
		}
	}
	return fmt.Errorf("no day tab matched %s", d)
}

// verifyDate waits briefly for tee-time rows to materialize after a date
// change. An empty sheet here means the selection did not take, or the
// date has nothing rendered yet; either way the caller must not book.
func (n *Navigator) verifyDate(scope domschema.Scope) bool {
	_, err := n.res.Resolve(scope, "date.slots_present")
	return err == nil
}
