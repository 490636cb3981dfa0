package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/booking"
	"github.com/example/teetime-agent/internal/timing"
)

// Logger records outcomes to the structured log. It is the default when
// no mail settings are configured.
type Logger struct{ Log *zap.Logger }

func (l Logger) BookingConfirmed(_ context.Context, req booking.Request, bookedTime timing.TimeOfDay, confirmation string) {
	l.Log.Info("booking confirmed",
		zap.String("id", req.ID),
		zap.String("date", req.RequestedDate.String()),
		zap.String("booked_time", bookedTime.String()),
		zap.String("confirmation", confirmation))
}

func (l Logger) BookingFailed(_ context.Context, req booking.Request, reason string) {
	l.Log.Warn("booking failed",
		zap.String("id", req.ID),
		zap.String("date", req.RequestedDate.String()),
		zap.String("requested_time", req.RequestedTime.String()),
		zap.String("reason", reason))
}

// Multi fans out to several notifiers.
type Multi []Notifier

func (m Multi) BookingConfirmed(ctx context.Context, req booking.Request, t timing.TimeOfDay, c string) {
	for _, n := range m {
		n.BookingConfirmed(ctx, req, t, c)
	}
}

func (m Multi) BookingFailed(ctx context.Context, req booking.Request, reason string) {
	for _, n := range m {
		n.BookingFailed(ctx, req, reason)
	}
}
