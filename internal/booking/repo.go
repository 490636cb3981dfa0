package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/teetime-agent/internal/db"
	"github.com/example/teetime-agent/internal/timing"
)

// DB is the slice of the database layer the repository uses. *db.DB
// satisfies it; tests substitute an in-memory fake.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (db.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) db.Row
}

type Repo struct{ db DB }

func NewRepo(d DB) *Repo { return &Repo{db: d} }

const requestCols = `id, phone, requested_date, requested_time, players, fallback_min,
scheduled_at, status, booked_time, confirmation, last_error, created_at, updated_at`

// Create inserts a new request. The ID is an 8-character uuid prefix,
// which is short enough to read back over a text message.
func (r *Repo) Create(ctx context.Context, req Request) (Request, error) {
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	req.ID = strings.SplitN(uuid.NewString(), "-", 2)[0]
	if req.Status == "" {
		req.Status = StatusPending
	}

	var scheduledAt any
	if !req.ScheduledAt.IsZero() {
		scheduledAt = req.ScheduledAt
	}

	err := r.db.Exec(ctx, `
INSERT INTO bookings(id, phone, requested_date, requested_time, players, fallback_min, scheduled_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		req.ID, req.Phone, dateValue(req.RequestedDate), req.RequestedTime.String(),
		req.Players, req.FallbackWindow, scheduledAt, string(req.Status),
	)
	if err != nil {
		return Request{}, fmt.Errorf("create booking: %w", err)
	}
	return r.Get(ctx, req.ID)
}

func (r *Repo) Get(ctx context.Context, id string) (Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestCols+` FROM bookings WHERE id=$1`, id)
	req, err := scanRequest(row)
	if err != nil {
		return Request{}, db.WrapNotFound(err)
	}
	return req, nil
}

func (r *Repo) List(ctx context.Context, phone string) ([]Request, error) {
	q := `SELECT ` + requestCols + ` FROM bookings ORDER BY requested_date, requested_time`
	args := []any{}
	if phone != "" {
		q = `SELECT ` + requestCols + ` FROM bookings WHERE phone=$1 ORDER BY requested_date, requested_time`
		args = append(args, phone)
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Schedule records the computed open instant and moves the request from
// pending to scheduled.
func (r *Repo) Schedule(ctx context.Context, id string, openAt time.Time) error {
	return r.transition(ctx, id, StatusScheduled,
		`UPDATE bookings SET status=$2, scheduled_at=$3, updated_at=now()
		 WHERE id=$1 AND status='pending'`, string(StatusScheduled), openAt)
}

// ListDue returns requests whose reservation window has opened as of the
// given instant and which have not yet been claimed.
func (r *Repo) ListDue(ctx context.Context, asOf time.Time) ([]Request, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+requestCols+`
FROM bookings
WHERE status IN ('pending','scheduled')
  AND scheduled_at IS NOT NULL
  AND scheduled_at <= $1
ORDER BY requested_date, requested_time`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Claim atomically moves a request into executing. The WHERE clause is the
// compare-and-set: overlapping scans cannot both claim the same request,
// and a request that already left scheduled is simply not found.
func (r *Repo) Claim(ctx context.Context, id string) (Request, error) {
	row := r.db.QueryRow(ctx, `
UPDATE bookings SET status='executing', updated_at=now()
WHERE id=$1 AND status IN ('pending','scheduled')
RETURNING `+requestCols, id)
	req, err := scanRequest(row)
	if err != nil {
		return Request{}, db.WrapNotFound(err)
	}
	return req, nil
}

// MarkConfirmed records a successful execution outcome.
func (r *Repo) MarkConfirmed(ctx context.Context, id string, bookedTime timing.TimeOfDay, confirmation string) error {
	if err := r.db.Exec(ctx, `
INSERT INTO booking_attempts(booking_id, success, booked_time, detail)
VALUES ($1, true, $2, $3)`, id, bookedTime.String(), confirmation); err != nil {
		return err
	}
	return r.transition(ctx, id, StatusConfirmed, `
UPDATE bookings SET status='confirmed', booked_time=$2, confirmation=$3, last_error=NULL, updated_at=now()
WHERE id=$1 AND status='executing'`, bookedTime.String(), confirmation)
}

// MarkFailed records a failed execution outcome.
func (r *Repo) MarkFailed(ctx context.Context, id string, reason string) error {
	if err := r.db.Exec(ctx, `
INSERT INTO booking_attempts(booking_id, success, detail)
VALUES ($1, false, $2)`, id, reason); err != nil {
		return err
	}
	return r.transition(ctx, id, StatusFailed, `
UPDATE bookings SET status='failed', last_error=$2, updated_at=now()
WHERE id=$1 AND status='executing'`, reason)
}

// Cancel cancels a pending or scheduled request. A request that is
// executing returns ErrConflict; a confirmed one must go through web
// cancellation and MarkCancelled; anything else returns ErrNotFound.
func (r *Repo) Cancel(ctx context.Context, id string) error {
	req, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	switch req.Status {
	case StatusPending, StatusScheduled:
	case StatusExecuting:
		return ErrConflict
	default:
		return db.ErrNotFound
	}

	err = r.transition(ctx, id, StatusCancelled, `
UPDATE bookings SET status='cancelled', updated_at=now()
WHERE id=$1 AND status IN ('pending','scheduled')`)
	if err != nil && db.IsNotFound(err) {
		// The guard matched nothing, so the status moved between the read
		// and the update. A scheduler pass claiming the request into
		// executing is the race that matters; a concurrent cancel already
		// did our work.
		cur, gerr := r.Get(ctx, id)
		if gerr != nil {
			return err
		}
		if cur.Status == StatusCancelled {
			return nil
		}
		return ErrConflict
	}
	return err
}

// MarkCancelled is used after a confirmed reservation has been cancelled
// on the club website itself.
func (r *Repo) MarkCancelled(ctx context.Context, id string) error {
	return r.transition(ctx, id, StatusCancelled, `
UPDATE bookings SET status='cancelled', updated_at=now()
WHERE id=$1 AND status='confirmed'`)
}

// transition runs a guarded status update. The WHERE clause is the
// compare-and-set; when it matches nothing the update did not happen and
// the caller gets db.ErrNotFound rather than silent success.
func (r *Repo) transition(ctx context.Context, id string, to Status, sql string, extra ...any) error {
	args := append([]any{id}, extra...)
	var got string
	if err := r.db.QueryRow(ctx, sql+"\nRETURNING id", args...).Scan(&got); err != nil {
		if db.IsNotFound(err) {
			return fmt.Errorf("transition %s -> %s: %w", id, to, db.ErrNotFound)
		}
		return fmt.Errorf("transition %s -> %s: %w", id, to, err)
	}
	return nil
}

func dateValue(d timing.CivilDate) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func scanRequest(row db.Row) (Request, error) {
	var (
		req                       Request
		reqDate                   time.Time
		reqTime                   string
		scheduledAt               *time.Time
		bookedTime, confirmation  *string
		lastError                 *string
		status                    string
	)
	err := row.Scan(&req.ID, &req.Phone, &reqDate, &reqTime, &req.Players, &req.FallbackWindow,
		&scheduledAt, &status, &bookedTime, &confirmation, &lastError, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return Request{}, err
	}
	req.RequestedDate = timing.DateOf(reqDate)
	req.RequestedTime, err = timing.ParseTimeOfDay(reqTime)
	if err != nil {
		return Request{}, fmt.Errorf("stored requested_time: %w", err)
	}
	req.Status = Status(status)
	if scheduledAt != nil {
		req.ScheduledAt = *scheduledAt
	}
	if bookedTime != nil && *bookedTime != "" {
		if req.BookedTime, err = timing.ParseTimeOfDay(*bookedTime); err != nil {
			return Request{}, fmt.Errorf("stored booked_time: %w", err)
		}
	}
	if confirmation != nil {
		req.Confirmation = *confirmation
	}
	if lastError != nil {
		req.LastError = *lastError
	}
	return req, nil
}
