package booking

// Status is the lifecycle state of a booking request.
//
// The order is monotonic: pending -> scheduled -> executing -> confirmed or
// failed. Cancelled is reachable from pending or scheduled through a plain
// store cancel, and from confirmed once the reservation has been removed
// on the club site itself. While a request is executing, cancellation must
// be refused rather than raced against the in-flight submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusExecuting Status = "executing"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusExecuting,
		StatusConfirmed, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
// Confirmed is not terminal: a confirmed reservation can still be
// cancelled on the club site.
func (s Status) Terminal() bool {
	switch s {
	case StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition encodes the status lattice. The repository consults it
// before any update, and Claim additionally enforces it atomically in SQL.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusScheduled || to == StatusExecuting || to == StatusCancelled
	case StatusScheduled:
		return to == StatusExecuting || to == StatusCancelled
	case StatusExecuting:
		return to == StatusConfirmed || to == StatusFailed
	case StatusConfirmed:
		// Web cancellation only; the repository additionally requires the
		// site-side cancel to have happened first.
		return to == StatusCancelled
	default:
		return false
	}
}
