// Package booking holds the booking request model, its status machine and
// the postgres repository backing them.
package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/teetime-agent/internal/timing"
)

var (
	// ErrConflict is returned when a cancellation races an in-flight
	// execution. The caller must not retry until the execution settles.
	ErrConflict = errors.New("booking is executing")

	// ErrTooSoonForGuests rejects multi-player requests inside the window
	// where the club site disables TBD guest placeholders.
	ErrTooSoonForGuests = errors.New("multi-player bookings require more than 48 hours notice")
)

// guestCutoff is how far ahead a tee time must be for TBD guest slots to
// still be enabled on the site.
const guestCutoff = 48 * time.Hour

// Request is one tee-time booking request.
type Request struct {
	ID             string
	Phone          string
	RequestedDate  timing.CivilDate
	RequestedTime  timing.TimeOfDay
	Players        int
	FallbackWindow int // minutes either side of RequestedTime

	ScheduledAt  time.Time // absolute instant the reservation window opens
	Status       Status
	BookedTime   timing.TimeOfDay // actual time booked, may differ from requested
	Confirmation string
	LastError    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r Request) Validate() error {
	if r.Phone == "" {
		return fmt.Errorf("phone required")
	}
	if r.RequestedDate.IsZero() {
		return fmt.Errorf("requested_date required")
	}
	if r.Players < 1 || r.Players > 4 {
		return fmt.Errorf("players must be between 1 and 4")
	}
	if r.FallbackWindow < 0 {
		return fmt.Errorf("fallback window must not be negative")
	}
	return nil
}

// CheckGuestWindow enforces the 48-hour restriction for multi-player
// requests: the site disables TBD placeholders inside that window, so a
// 2+ player booking created now would be guaranteed to fail at execution.
func (r Request) CheckGuestWindow(now time.Time, loc *time.Location) error {
	if r.Players <= 1 {
		return nil
	}
	teeTime := timing.Instant(r.RequestedDate, r.RequestedTime, loc)
	if teeTime.Sub(now) < guestCutoff {
		return ErrTooSoonForGuests
	}
	return nil
}
