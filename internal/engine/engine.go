// Package engine ties the repository, the timing window and the browser
// runner together: scheduling new requests, executing due ones and
// cancelling.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/batch"
	"github.com/example/teetime-agent/internal/booking"
	"github.com/example/teetime-agent/internal/db"
	"github.com/example/teetime-agent/internal/notify"
	"github.com/example/teetime-agent/internal/timing"
)

// Store is the slice of the booking repository the engine needs.
type Store interface {
	Get(ctx context.Context, id string) (booking.Request, error)
	Create(ctx context.Context, req booking.Request) (booking.Request, error)
	Schedule(ctx context.Context, id string, openAt time.Time) error
	ListDue(ctx context.Context, asOf time.Time) ([]booking.Request, error)
	Claim(ctx context.Context, id string) (booking.Request, error)
	MarkConfirmed(ctx context.Context, id string, bookedTime timing.TimeOfDay, confirmation string) error
	MarkFailed(ctx context.Context, id string, reason string) error
	Cancel(ctx context.Context, id string) error
	MarkCancelled(ctx context.Context, id string) error
}

// Runner executes a batch of claimed requests against the club site.
type Runner interface {
	Run(ctx context.Context, requests []booking.Request) []batch.Outcome
}

// WebCanceller removes a confirmed reservation from the club site.
type WebCanceller interface {
	CancelReservation(ctx context.Context, date timing.CivilDate, t timing.TimeOfDay) error
}

// Engine is safe for concurrent use as long as its collaborators are.
type Engine struct {
	store     Store
	runner    Runner
	canceller WebCanceller
	notifier  notify.Notifier
	window    timing.Window
	log       *zap.Logger

	now func() time.Time
}

type Options struct {
	Store     Store
	Runner    Runner
	Canceller WebCanceller
	Notifier  notify.Notifier
	Window    timing.Window
	Log       *zap.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	return &Engine{
		store:     opts.Store,
		runner:    opts.Runner,
		canceller: opts.Canceller,
		notifier:  opts.Notifier,
		window:    opts.Window,
		log:       opts.Log,
		now:       opts.Now,
	}
}

// CreateBooking validates, stores and schedules a new request. The open
// instant is computed from the club's release policy: openHour:openMinute
// club time on requestedDate minus daysInAdvance. A request whose window
// has already opened is scheduled for immediate pickup.
func (e *Engine) CreateBooking(ctx context.Context, req booking.Request) (booking.Request, error) {
	now := e.now()
	if err := req.CheckGuestWindow(now, e.window.Location); err != nil {
		return booking.Request{}, err
	}
	if req.RequestedDate.Before(timing.DateOf(now.In(e.window.Location))) {
		return booking.Request{}, fmt.Errorf("requested date %s is in the past", req.RequestedDate)
	}

	created, err := e.store.Create(ctx, req)
	if err != nil {
		return booking.Request{}, err
	}

	openAt := e.window.OpenInstant(req.RequestedDate)
	if err := e.store.Schedule(ctx, created.ID, openAt); err != nil {
		return booking.Request{}, err
	}
	e.log.Info("booking scheduled",
		zap.String("id", created.ID),
		zap.String("date", req.RequestedDate.String()),
		zap.String("time", req.RequestedTime.String()),
		zap.Time("opens_at", openAt))

	return e.store.Get(ctx, created.ID)
}

// Report summarizes one execution pass. Field names and layout are part
// of the external contract; consumers parse this JSON.
type Report struct {
	ExecutedAt time.Time     `json:"executed_at"`
	TotalDue   int           `json:"total_due"`
	Executed   int           `json:"executed"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Results    []ReportEntry `json:"results"`
}

type ReportEntry struct {
	BookingID     string `json:"booking_id"`
	Status        string `json:"status"`
	RequestedDate string `json:"requested_date"`
	RequestedTime string `json:"requested_time"`
	BookedTime    string `json:"booked_time,omitempty"`
	Confirmation  string `json:"confirmation,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ExecuteDueBookings claims every request whose window has opened as of
// asOf and runs them as one batch. Claiming is a compare-and-set in the
// store, so overlapping passes cannot execute the same request twice: the
// loser simply finds nothing to claim.
func (e *Engine) ExecuteDueBookings(ctx context.Context, asOf time.Time) (Report, error) {
	report := Report{ExecutedAt: e.now(), Results: []ReportEntry{}}

	due, err := e.store.ListDue(ctx, asOf)
	if err != nil {
		return report, fmt.Errorf("list due bookings: %w", err)
	}
	report.TotalDue = len(due)
	if len(due) == 0 {
		return report, nil
	}

	claimed := make([]booking.Request, 0, len(due))
	for _, req := range due {
		got, err := e.store.Claim(ctx, req.ID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				// Another pass got there first, or the request was
				// cancelled between listing and claiming.
				e.log.Debug("claim lost", zap.String("id", req.ID))
				continue
			}
			return report, fmt.Errorf("claim %s: %w", req.ID, err)
		}
		claimed = append(claimed, got)
	}
	report.Executed = len(claimed)
	if len(claimed) == 0 {
		return report, nil
	}

	e.log.Info("executing due bookings",
		zap.Int("due", report.TotalDue), zap.Int("claimed", report.Executed))

	outcomes := e.runner.Run(ctx, claimed)

	for i, out := range outcomes {
		req := claimed[i]
		entry := ReportEntry{
			BookingID:     req.ID,
			RequestedDate: req.RequestedDate.String(),
			RequestedTime: req.RequestedTime.String(),
		}

		if out.Booked {
			if err := e.store.MarkConfirmed(ctx, req.ID, out.BookedTime, out.Confirmation); err != nil {
				return report, fmt.Errorf("mark confirmed %s: %w", req.ID, err)
			}
			entry.Status = "success"
			entry.BookedTime = out.BookedTime.String()
			entry.Confirmation = out.Confirmation
			report.Succeeded++
			e.notifier.BookingConfirmed(ctx, req, out.BookedTime, out.Confirmation)
		} else {
			reason := "unknown failure"
			if out.Err != nil {
				reason = out.Err.Error()
			}
			if err := e.store.MarkFailed(ctx, req.ID, reason); err != nil {
				return report, fmt.Errorf("mark failed %s: %w", req.ID, err)
			}
			entry.Status = "failed"
			entry.Error = reason
			report.Failed++
			e.notifier.BookingFailed(ctx, req, reason)
		}
		report.Results = append(report.Results, entry)
	}

	return report, nil
}

// CancelBooking cancels a request wherever it is in its lifecycle.
// Pending and scheduled requests are cancelled in the store alone. A
// confirmed reservation is first cancelled on the club site, then marked.
// An executing request is refused with booking.ErrConflict.
func (e *Engine) CancelBooking(ctx context.Context, id string) error {
	req, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}

	switch req.Status {
	case booking.StatusPending, booking.StatusScheduled:
		return e.store.Cancel(ctx, id)
	case booking.StatusExecuting:
		return booking.ErrConflict
	case booking.StatusConfirmed:
		if e.canceller == nil {
			return fmt.Errorf("confirmed booking %s requires web cancellation, no canceller configured", id)
		}
		teeTime := req.BookedTime
		if (teeTime == timing.TimeOfDay{}) {
			teeTime = req.RequestedTime
		}
		if err := e.canceller.CancelReservation(ctx, req.RequestedDate, teeTime); err != nil {
			return fmt.Errorf("cancel on site: %w", err)
		}
		return e.store.MarkCancelled(ctx, id)
	default:
		return fmt.Errorf("booking %s is already %s", id, req.Status)
	}
}
