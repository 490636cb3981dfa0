// Package batch executes a set of due booking requests against one
// browser session, keeping them from fighting over the same slots.
package batch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/booking"
	"github.com/example/teetime-agent/internal/course"
	"github.com/example/teetime-agent/internal/executor"
	"github.com/example/teetime-agent/internal/session"
	"github.com/example/teetime-agent/internal/teesheet"
	"github.com/example/teetime-agent/internal/timing"
)

// Sheet navigates the tee sheet and reads its slots.
type Sheet interface {
	// Prepare points the sheet at a course and date.
	Prepare(c course.Identity, d timing.CivilDate) error
	// Slots catalogs the currently displayed sheet.
	Slots() ([]teesheet.Slot, error)
}

// Booker books one catalog slot on the prepared sheet. The whole slot is
// passed through so course identity established by the filter survives to
// the click.
type Booker interface {
	Book(slot teesheet.Slot, players int) (executor.Result, error)
}

// Session reports and restores authentication.
type Session interface {
	Healthy() bool
	Relogin() error
}

// Outcome is the result of one request in a batch.
type Outcome struct {
	RequestID    string
	Booked       bool
	BookedTime   timing.TimeOfDay
	Confirmation string
	Err          error
}

// Orchestrator runs requests sequentially through one session. Requests
// are isolated: one failing never aborts the rest, with the single
// exception of an unrecoverable auth loss.
type Orchestrator struct {
	sheet   Sheet
	booker  Booker
	session Session

	course  course.Identity
	lenient bool
	log     *zap.Logger
}

func NewOrchestrator(sheet Sheet, booker Booker, session Session, c course.Identity, lenient bool, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		sheet: sheet, booker: booker, session: session,
		course: c, lenient: lenient, log: log,
	}
}

// state tracks cross-request slot knowledge within one batch, keyed by
// "date|HH:MM".
type state struct {
	// booked holds times this batch already won; later requests must not
	// book the member into two groups at once.
	booked map[string]bool
	// excluded holds times that failed a booking attempt; retrying them
	// for the next request would just lose the race again.
	excluded map[string]bool
}

func slotKey(d timing.CivilDate, t timing.TimeOfDay) string {
	return d.String() + "|" + t.String()
}

func (st *state) excludeSetFor(d timing.CivilDate) map[string]bool {
	out := map[string]bool{}
	for key := range st.booked {
		if len(key) > 11 && key[:10] == d.String() {
			out[key[11:]] = true
		}
	}
	for key := range st.excluded {
		if len(key) > 11 && key[:10] == d.String() {
			out[key[11:]] = true
		}
	}
	return out
}

// Run executes the requests in order and returns one outcome per request,
// in the same order.
func (o *Orchestrator) Run(ctx context.Context, requests []booking.Request) []Outcome {
	st := &state{booked: map[string]bool{}, excluded: map[string]bool{}}
	outcomes := make([]Outcome, 0, len(requests))

	reloginUsed := false
	authDead := false

	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{RequestID: req.ID, Err: err})
			continue
		}
		if authDead {
			outcomes = append(outcomes, Outcome{RequestID: req.ID,
				Err: fmt.Errorf("session lost earlier in batch: %w", session.ErrAuthFailed)})
			continue
		}

		out := o.runOne(req, st)

		// One re-login per batch when the site dropped us mid-run.
		if out.Err != nil && !o.session.Healthy() {
			if reloginUsed {
				authDead = true
			} else {
				reloginUsed = true
				o.log.Warn("session lost, re-authenticating", zap.String("id", req.ID))
				if err := o.session.Relogin(); err != nil {
					o.log.Error("re-login failed, abandoning remaining requests", zap.Error(err))
					authDead = true
					out.Err = fmt.Errorf("re-login failed: %w", err)
				} else {
					out = o.runOne(req, st)
				}
			}
		}

		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (o *Orchestrator) runOne(req booking.Request, st *state) Outcome {
	out := Outcome{RequestID: req.ID}
	log := o.log.With(zap.String("id", req.ID),
		zap.String("date", req.RequestedDate.String()),
		zap.String("time", req.RequestedTime.String()))

	if err := o.sheet.Prepare(o.course, req.RequestedDate); err != nil {
		out.Err = fmt.Errorf("prepare sheet: %w", err)
		return out
	}

	slots, err := o.sheet.Slots()
	if err != nil {
		out.Err = fmt.Errorf("catalog slots: %w", err)
		return out
	}

	filter := teesheet.Filter{
		Course:        o.course,
		Lenient:       o.lenient,
		Players:       req.Players,
		Requested:     req.RequestedTime,
		WindowMinutes: req.FallbackWindow,
		Exclude:       st.excludeSetFor(req.RequestedDate),
	}
	candidates := filter.Candidates(slots)
	if len(candidates) == 0 {
		out.Err = teesheet.ErrSlotUnavailable
		return out
	}
	log.Info("candidates selected", zap.Int("count", len(candidates)))

	for _, cand := range candidates {
		res, err := o.booker.Book(cand, req.Players)
		if err == nil {
			st.booked[slotKey(req.RequestedDate, res.Time)] = true
			out.Booked = true
			out.BookedTime = res.Time
			out.Confirmation = res.Confirmation
			return out
		}

		if errors.Is(err, executor.ErrConfirmationTimeout) {
			// Ambiguous: the booking may have gone through. Trying the
			// next candidate could double-book, so stop here and let the
			// caller reconcile against the reservations page.
			st.excluded[slotKey(req.RequestedDate, cand.Time)] = true
			out.Err = err
			return out
		}
		if errors.Is(err, executor.ErrBookingFailed) {
			log.Warn("candidate failed, trying next",
				zap.String("candidate", cand.Time.String()), zap.Error(err))
			st.excluded[slotKey(req.RequestedDate, cand.Time)] = true
			continue
		}
		out.Err = err
		return out
	}

	out.Err = teesheet.ErrSlotUnavailable
	return out
}
