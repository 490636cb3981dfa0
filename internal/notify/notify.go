// Package notify tells the member what happened to their booking.
package notify

import (
	"context"

	"github.com/example/teetime-agent/internal/booking"
	"github.com/example/teetime-agent/internal/timing"
)

// Notifier receives booking outcomes. Implementations must not block the
// execution pass on slow delivery; failures are logged and dropped.
type Notifier interface {
	BookingConfirmed(ctx context.Context, req booking.Request, bookedTime timing.TimeOfDay, confirmation string)
	BookingFailed(ctx context.Context, req booking.Request, reason string)
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) BookingConfirmed(context.Context, booking.Request, timing.TimeOfDay, string) {}

func (Nop) BookingFailed(context.Context, booking.Request, string) {}
