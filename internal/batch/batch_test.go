package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/booking"
	"github.com/example/teetime-agent/internal/course"
	"github.com/example/teetime-agent/internal/executor"
	"github.com/example/teetime-agent/internal/session"
	"github.com/example/teetime-agent/internal/teesheet"
	"github.com/example/teetime-agent/internal/timing"
)

var northgate = course.Identity{Name: "Northgate", DropdownValue: "2", SheetIndex: 0}

func tod(h, m int) timing.TimeOfDay { return timing.TimeOfDay{Hour: h, Minute: m} }

func testDate() timing.CivilDate {
	return timing.CivilDate{Year: 2026, Month: time.September, Day: 12}
}

func openSlot(h, m int) teesheet.Slot {
	return slotOn(0, h, m)
}

func slotOn(courseIdx, h, m int) teesheet.Slot {
	return teesheet.Slot{
		Time:        tod(h, m),
		ElementID:   fmt.Sprintf("x:teeTimeCourses:%d:teeTimeSlots:%d%02d:slotTee:0:slotTeeDIV", courseIdx, h, m),
		CourseIndex: courseIdx,
		Capacity:    4,
		State:       teesheet.StateEmpty,
	}
}

// fakeSite implements Sheet, Booker and Session against an in-memory
// slot table.
type fakeSite struct {
	slots map[string][]teesheet.Slot // keyed by date
	date  timing.CivilDate

	healthy     bool
	relogins    int
	reloginErr  error
	prepareErr  error
	bookErrs    map[string]error // keyed by HH:MM, consumed on first use
	bookedTimes []string
	bookedSlots []teesheet.Slot
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		slots:    map[string][]teesheet.Slot{},
		healthy:  true,
		bookErrs: map[string]error{},
	}
}

func (f *fakeSite) Prepare(c course.Identity, d timing.CivilDate) error {
	if f.prepareErr != nil {
		return f.prepareErr
	}
	f.date = d
	return nil
}

func (f *fakeSite) Slots() ([]teesheet.Slot, error) {
	return f.slots[f.date.String()], nil
}

func (f *fakeSite) Book(slot teesheet.Slot, players int) (executor.Result, error) {
	t := slot.Time
	if err, ok := f.bookErrs[t.String()]; ok {
		delete(f.bookErrs, t.String())
		return executor.Result{}, err
	}
	f.bookedTimes = append(f.bookedTimes, t.String())
	f.bookedSlots = append(f.bookedSlots, slot)
	return executor.Result{Time: t, Confirmation: "CONF-" + t.String()}, nil
}

func (f *fakeSite) Healthy() bool { return f.healthy }

// Relogin restores health and clears any simulated auth-induced failure.
func (f *fakeSite) Relogin() error {
	f.relogins++
	if f.reloginErr != nil {
		return f.reloginErr
	}
	f.healthy = true
	f.prepareErr = nil
	return nil
}

func request(id string, d timing.CivilDate, t timing.TimeOfDay, players, window int) booking.Request {
	return booking.Request{
		ID: id, Phone: "+15550001111",
		RequestedDate: d, RequestedTime: t,
		Players: players, FallbackWindow: window,
		Status: booking.StatusExecuting,
	}
}

func newOrch(f *fakeSite) *Orchestrator {
	return NewOrchestrator(f, f, f, northgate, false, zap.NewNop())
}

func TestRunBooksRequestedTime(t *testing.T) {
	f := newFakeSite()
	d := testDate()
	f.slots[d.String()] = []teesheet.Slot{openSlot(7, 20), openSlot(7, 30), openSlot(7, 40)}

	out := newOrch(f).Run(context.Background(), []booking.Request{
		request("a", d, tod(7, 30), 4, 30),
	})

	if len(out) != 1 || !out[0].Booked {
		t.Fatalf("expected booked outcome, got %+v", out)
	}
	if out[0].BookedTime != tod(7, 30) {
		t.Errorf("booked %s, want 07:30", out[0].BookedTime)
	}
	if out[0].Confirmation == "" {
		t.Error("confirmation missing")
	}
}

func TestRunBooksOnlyOwnCourseRow(t *testing.T) {
	f := newFakeSite()
	d := testDate()
	// Every course's section renders on the same sheet, so another
	// course's 07:30 row sits ahead of ours. The slot handed to the booker
	// must still be the one the filter chose.
	f.slots[d.String()] = []teesheet.Slot{slotOn(1, 7, 30), slotOn(0, 7, 30)}

	out := newOrch(f).Run(context.Background(), []booking.Request{
		request("a", d, tod(7, 30), 4, 0),
	})

	if !out[0].Booked {
		t.Fatalf("expected booked outcome, got %+v", out[0])
	}
	if len(f.bookedSlots) != 1 {
		t.Fatalf("expected one booking, got %d", len(f.bookedSlots))
	}
	got := f.bookedSlots[0]
	if got.CourseIndex != northgate.SheetIndex {
		t.Errorf("booked row belongs to course index %d, want %d", got.CourseIndex, northgate.SheetIndex)
	}
	if !strings.Contains(got.ElementID, "teeTimeCourses:0:") {
		t.Errorf("booked row id %q does not pin the requested course", got.ElementID)
	}
}

func TestRunAvoidsDoubleBookingWithinBatch(t *testing.T) {
	f := newFakeSite()
	d := testDate()
	f.slots[d.String()] = []teesheet.Slot{openSlot(7, 30), openSlot(7, 40)}

	out := newOrch(f).Run(context.Background(), []booking.Request{
		request("a", d, tod(7, 30), 2, 30),
		request("b", d, tod(7, 30), 2, 30),
	})

	if !out[0].Booked || !out[1].Booked {
		t.Fatalf("both should book, got %+v", out)
	}
	if out[0].BookedTime == out[1].BookedTime {
		t.Fatalf("batch booked the same slot twice: %s", out[0].BookedTime)
	}
	if out[1].BookedTime != tod(7, 40) {
		t.Errorf("second request should take the fallback slot, got %s", out[1].BookedTime)
	}
}

func TestRunFallsBackAfterLostRace(t *testing.T) {
	f := newFakeSite()
	d := testDate()
	f.slots[d.String()] = []teesheet.Slot{openSlot(7, 30), openSlot(7, 40)}
	f.bookErrs["07:30"] = fmt.Errorf("%w: slot taken", executor.ErrBookingFailed)

	out := newOrch(f).Run(context.Background(), []booking.Request{
		request("a", d, tod(7, 30), 2, 30),
	})

	if !out[0].Booked || out[0].BookedTime != tod(7, 40) {
		t.Fatalf("should recover onto the next candidate, got %+v", out[0])
	}
}

func TestRunNoCandidates(t *testing.T) {
	f := newFakeSite()
	d := testDate()
	f.slots[d.String()] = []teesheet.Slot{
		{Time: tod(7, 30), CourseIndex: 0, Capacity: 1, State: teesheet.StatePartial},
	}

	out := newOrch(f).Run(context.Background(), []booking.Request{
		request("a", d, tod(7, 30), 4, 30),
	})

	if out[0].Booked || !errors.Is(out[0].Err, teesheet.ErrSlotUnavailable) {
		t.Fatalf("want ErrSlotUnavailable, got %+v", out[0])
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	f := newFakeSite()
	d := testDate()
	f.slots[d.String()] = []teesheet.Slot{openSlot(7, 30), openSlot(8, 0)}
	// The 7:30 request exhausts its only candidate; the 8:00 request must
	// still run.
	f.bookErrs["07:30"] = fmt.Errorf("%w: slot taken", executor.ErrBookingFailed)

	out := newOrch(f).Run(context.Background(), []booking.Request{
		request("a", d, tod(7, 30), 2, 0),
		request("b", d, tod(8, 0), 2, 0),
	})

	if out[0].Booked {
		t.Fatalf("first request should fail, got %+v", out[0])
	}
	if !out[1].Booked || out[1].BookedTime != tod(8, 0) {
		t.Fatalf("second request should still book, got %+v", out[1])
	}
}

func TestRunConfirmationTimeoutStopsCandidateLoop(t *testing.T) {
	f := newFakeSite()
	d := testDate()
	f.slots[d.String()] = []teesheet.Slot{openSlot(7, 30), openSlot(7, 40)}
	f.bookErrs["07:30"] = executor.ErrConfirmationTimeout

	out := newOrch(f).Run(context.Background(), []booking.Request{
		request("a", d, tod(7, 30), 2, 30),
	})

	if !errors.Is(out[0].Err, executor.ErrConfirmationTimeout) {
		t.Fatalf("want ErrConfirmationTimeout, got %+v", out[0])
	}
	if len(f.bookedTimes) != 0 {
		t.Fatalf("ambiguous outcome must not try further candidates, booked %v", f.bookedTimes)
	}
}

func TestRunReloginOnceThenRetry(t *testing.T) {
	f := newFakeSite()
	d := testDate()
	f.slots[d.String()] = []teesheet.Slot{openSlot(7, 30)}
	// Simulate a session the site expired: the first attempt fails and
	// the health probe says we are logged out. Relogin clears both.
	f.prepareErr = errors.New("kicked to login page")
	f.healthy = false

	out := newOrch(f).Run(context.Background(), []booking.Request{
		request("a", d, tod(7, 30), 1, 0),
	})

	if f.relogins != 1 {
		t.Fatalf("expected exactly one re-login, got %d", f.relogins)
	}
	if !out[0].Booked {
		t.Fatalf("retry after re-login should book, got %+v", out[0])
	}
}

func TestRunFailedReloginAbandonsRemainder(t *testing.T) {
	f := newFakeSite()
	d := testDate()
	f.slots[d.String()] = []teesheet.Slot{openSlot(7, 30), openSlot(8, 0)}
	f.prepareErr = errors.New("kicked to login page")
	f.healthy = false
	f.reloginErr = fmt.Errorf("%w: credentials rejected", session.ErrAuthFailed)

	out := newOrch(f).Run(context.Background(), []booking.Request{
		request("a", d, tod(7, 30), 1, 0),
		request("b", d, tod(8, 0), 1, 0),
	})

	if f.relogins != 1 {
		t.Fatalf("expected exactly one re-login attempt, got %d", f.relogins)
	}
	if out[0].Booked || out[1].Booked {
		t.Fatalf("nothing should book after auth death, got %+v", out)
	}
	if !errors.Is(out[1].Err, session.ErrAuthFailed) {
		t.Fatalf("remaining requests should carry the auth error, got %v", out[1].Err)
	}
}
