// Package executor drives a single reservation through the booking modal,
// and cancels confirmed reservations on the member reservations page.
package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/course"
	"github.com/example/teetime-agent/internal/domschema"
	"github.com/example/teetime-agent/internal/teesheet"
	"github.com/example/teetime-agent/internal/timing"
)

var (
	// ErrBookingFailed means the site reported an explicit error during
	// submission. The slot may have been taken between catalog and click.
	ErrBookingFailed = errors.New("booking failed")

	// ErrConfirmationTimeout means submission went in but neither a
	// success nor an error surfaced in time. The outcome is ambiguous and
	// the caller must re-check the reservations page before retrying.
	ErrConfirmationTimeout = errors.New("confirmation not observed in time")

	// ErrReservationNotFound means no row on the reservations page matched
	// the date and time to cancel.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrCancelFailed means the cancel click went in but the row survived.
	ErrCancelFailed = errors.New("cancellation did not take effect")
)

// Result is a completed booking.
type Result struct {
	Time         timing.TimeOfDay
	Confirmation string
}

// Executor performs the modal flow. One instance is shared across a
// batch; it holds no per-booking state.
type Executor struct {
	res            *domschema.Resolver
	log            *zap.Logger
	confirmTimeout time.Duration
}

func New(res *domschema.Resolver, log *zap.Logger, confirmTimeout time.Duration) *Executor {
	if confirmTimeout <= 0 {
		confirmTimeout = 20 * time.Second
	}
	return &Executor{res: res, log: log, confirmTimeout: confirmTimeout}
}

// Book reserves the given catalog slot for a party of players. The sheet
// must already be on the right course and date. The slot, not just its
// time, identifies the row: the portlet renders every course's section on
// the same page, so a bare clock time is ambiguous across courses.
func (e *Executor) Book(page playwright.Page, slot teesheet.Slot, players int) (Result, error) {
	row, err := e.findSlotRow(page, slot)
	if err != nil {
		return Result{}, err
	}

	if err := e.openModal(page, row); err != nil {
		return Result{}, err
	}

	modal, err := e.res.Resolve(domschema.PageScope(page), "modal.container")
	if err != nil {
		return Result{}, fmt.Errorf("%w: booking modal never appeared", ErrBookingFailed)
	}
	modalScope := domschema.LocatorScope(modal)

	if err := e.setPlayerCount(modalScope, players); err != nil {
		return Result{}, err
	}
	if err := e.fillGuestSeats(modalScope, players); err != nil {
		return Result{}, err
	}

	submit, err := e.res.Resolve(modalScope, "confirm.book_now")
	if err != nil {
		// Some skins render the action bar outside the modal element.
		submit, err = e.res.Resolve(domschema.PageScope(page), "confirm.book_now")
		if err != nil {
			return Result{}, fmt.Errorf("%w: no submit control", ErrBookingFailed)
		}
	}
	if err := submit.Click(); err != nil {
		return Result{}, fmt.Errorf("submit booking: %w", err)
	}

	confirmation, err := e.awaitConfirmation(page, modal)
	if err != nil {
		return Result{}, err
	}
	e.log.Info("booked",
		zap.String("time", slot.Time.String()),
		zap.Int("course_index", slot.CourseIndex),
		zap.Int("players", players))
	return Result{Time: slot.Time, Confirmation: confirmation}, nil
}

// findSlotRow locates the exact sheet row for the slot. The element id
// recorded at catalog time is preferred; otherwise rows are scanned by
// time label and, when the slot carries a course index, the row must
// prove the same index through its own element ids before it is clicked.
func (e *Executor) findSlotRow(page playwright.Page, slot teesheet.Slot) (playwright.Locator, error) {
	if slot.ElementID != "" {
		row := page.Locator(fmt.Sprintf(`[id=%q]`, slot.ElementID))
		if n, err := row.Count(); err == nil && n > 0 {
			return row.First(), nil
		}
		// The widget re-rendered since the catalog was built; fall back to
		// scanning.
	}

	items, err := e.res.ResolveAll(domschema.PageScope(page), "slots.item")
	if err != nil {
		return nil, fmt.Errorf("%w: sheet has no slot rows", ErrBookingFailed)
	}
	for _, item := range items {
		text, err := item.TextContent()
		if err != nil {
			continue
		}
		got, ok := teesheet.ParseTimeLabel(text)
		if !ok || got != slot.Time {
			continue
		}
		if slot.CourseIndex >= 0 {
			idx, ok := e.rowCourseIndex(item)
			if !ok || idx != slot.CourseIndex {
				continue
			}
		}
		return item, nil
	}
	return nil, fmt.Errorf("%w: no row at %s for course index %d",
		ErrBookingFailed, slot.Time, slot.CourseIndex)
}

// rowCourseIndex reads the sheet index out of the row's own element ids.
func (e *Executor) rowCourseIndex(item playwright.Locator) (int, bool) {
	if id, err := item.GetAttribute("id"); err == nil {
		if idx, ok := course.SheetIndexFromElementID(id); ok {
			return idx, true
		}
	}
	itemScope := domschema.LocatorScope(item)
	for _, key := range []string{"slots.reserve_button", "slots.free_link"} {
		links, err := e.res.ResolveAll(itemScope, key)
		if err != nil {
			continue
		}
		for _, link := range links {
			id, err := link.GetAttribute("id")
			if err != nil {
				continue
			}
			if idx, ok := course.SheetIndexFromElementID(id); ok {
				return idx, true
			}
		}
	}
	return 0, false
}

// openModal clicks into the row's reserve control.
func (e *Executor) openModal(page playwright.Page, row playwright.Locator) error {
	rowScope := domschema.LocatorScope(row)
	for _, key := range []string{"slots.reserve_button", "slots.free_link", "slots.free_span"} {
		link, err := e.res.Resolve(rowScope, key)
		if err != nil {
			continue
		}
		if err := link.Click(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: row has no clickable reserve control", ErrBookingFailed)
}

// setPlayerCount selects the party size inside the modal. Resolution is
// deliberately scoped: the page behind the modal has a look-alike radio
// group that filters the sheet by time period, and hitting that one both
// loses the modal and corrupts the sheet view.
func (e *Executor) setPlayerCount(modalScope domschema.Scope, players int) error {
	if group, err := e.res.Resolve(modalScope, "players.group"); err == nil {
		groupScope := domschema.LocatorScope(group)
		if radio, err := e.res.Resolve(groupScope, "players.radio", players); err == nil {
			class, _ := radio.GetAttribute("class")
			if strings.Contains(class, "ui-state-disabled") {
				return fmt.Errorf("%w: %d players not offered for this slot", ErrBookingFailed, players)
			}
			if err := radio.Click(); err != nil {
				return fmt.Errorf("select player count: %w", err)
			}
			return e.waitPlayerRows(modalScope, players)
		}
	}

	sel, err := e.res.Resolve(modalScope, "players.native_select")
	if err != nil {
		return fmt.Errorf("%w: no player count control in modal", ErrBookingFailed)
	}
	if _, err := sel.SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(fmt.Sprintf("%d", players)),
	}); err != nil {
		return fmt.Errorf("select player count: %w", err)
	}
	return e.waitPlayerRows(modalScope, players)
}

// waitPlayerRows confirms the modal re-rendered one row per player before
// anything touches the guest controls.
func (e *Executor) waitPlayerRows(modalScope domschema.Scope, players int) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rows, err := e.res.ResolveAll(modalScope, "players.rows")
		if err == nil && len(rows) >= players {
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	if players == 1 {
		// Single-player modals on some skins render no row table at all.
		return nil
	}
	return fmt.Errorf("%w: modal never showed %d player rows", ErrBookingFailed, players)
}

// fillGuestSeats marks seats 2..players as TBD registered guests. The
// member always occupies seat 1.
func (e *Executor) fillGuestSeats(modalScope domschema.Scope, players int) error {
	for seat := 2; seat <= players; seat++ {
		tbd, err := e.res.Resolve(modalScope, "guests.tbd_button")
		if err != nil {
			return fmt.Errorf("%w: no TBD control for seat %d", ErrBookingFailed, seat)
		}
		if err := tbd.Click(); err != nil {
			return fmt.Errorf("mark seat %d TBD: %w", seat, err)
		}
		time.Sleep(300 * time.Millisecond)
	}
	return nil
}

// awaitConfirmation polls for a definitive outcome after submission.
func (e *Executor) awaitConfirmation(page playwright.Page, modal playwright.Locator) (string, error) {
	pageScope := domschema.PageScope(page)
	deadline := time.Now().Add(e.confirmTimeout)

	for time.Now().Before(deadline) {
		if e.res.Present(pageScope, "confirm.error") {
			msg := e.readFirstText(pageScope, "confirm.error")
			if msg != "" {
				return "", fmt.Errorf("%w: %s", ErrBookingFailed, msg)
			}
		}
		if text := e.readFirstText(pageScope, "confirm.success"); text != "" {
			return text, nil
		}
		// Modal dismissal without an error banner is the site's quiet way
		// of saying done.
		if n, err := modal.Count(); err == nil && n == 0 {
			return "reservation submitted", nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return "", ErrConfirmationTimeout
}

func (e *Executor) readFirstText(scope domschema.Scope, key string) string {
	locs, err := e.res.ResolveAll(scope, key)
	if err != nil {
		return ""
	}
	for _, loc := range locs {
		text, err := loc.TextContent()
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			return t
		}
	}
	return ""
}

// Cancel removes a confirmed reservation from the member reservations
// page, which the caller must already have navigated to. The row is
// matched by date and tee time.
func (e *Executor) Cancel(page playwright.Page, date timing.CivilDate, t timing.TimeOfDay) error {
	pageScope := domschema.PageScope(page)

	rows, err := e.res.ResolveAll(pageScope, "cancel.rows")
	if err != nil {
		return ErrReservationNotFound
	}

	row, err := e.matchReservationRow(rows, date, t)
	if err != nil {
		return err
	}

	link, err := e.res.Resolve(domschema.LocatorScope(row), "cancel.link")
	if err != nil {
		return fmt.Errorf("%w: row has no cancel control", ErrCancelFailed)
	}
	if err := link.Click(); err != nil {
		return fmt.Errorf("click cancel: %w", err)
	}

	if confirm, err := e.res.Resolve(pageScope, "cancel.confirm"); err == nil {
		if err := confirm.Click(); err != nil {
			return fmt.Errorf("confirm cancel: %w", err)
		}
	}

	// Verify the reservation actually disappeared.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rows, err := e.res.ResolveAll(pageScope, "cancel.rows")
		if err != nil {
			return nil
		}
		if _, err := e.matchReservationRow(rows, date, t); errors.Is(err, ErrReservationNotFound) {
			e.log.Info("cancelled", zap.String("date", date.String()), zap.String("time", t.String()))
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return ErrCancelFailed
}

func (e *Executor) matchReservationRow(rows []playwright.Locator, date timing.CivilDate, t timing.TimeOfDay) (playwright.Locator, error) {
	dateForms := []string{
		fmt.Sprintf("%02d/%02d/%04d", int(date.Month), date.Day, date.Year),
		fmt.Sprintf("%d/%d/%04d", int(date.Month), date.Day, date.Year),
		fmt.Sprintf("%s %d", date.Month.String()[:3], date.Day),
	}
	for _, row := range rows {
		text, err := row.TextContent()
		if err != nil {
			continue
		}
		rowTime, ok := teesheet.ParseTimeLabel(text)
		if !ok || rowTime != t {
			continue
		}
		for _, df := range dateForms {
			if strings.Contains(text, df) {
				return row, nil
			}
		}
	}
	return nil, ErrReservationNotFound
}
