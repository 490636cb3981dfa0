package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/teetime-agent/internal/db"
	"github.com/example/teetime-agent/internal/timing"
)

// requestRow scans like a bookings row for one request.
type requestRow struct{ req Request }

func (r requestRow) Scan(dest ...any) error {
	d := r.req.RequestedDate
	*dest[0].(*string) = r.req.ID
	*dest[1].(*string) = r.req.Phone
	*dest[2].(*time.Time) = time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	*dest[3].(*string) = r.req.RequestedTime.String()
	*dest[4].(*int) = r.req.Players
	*dest[5].(*int) = r.req.FallbackWindow
	if !r.req.ScheduledAt.IsZero() {
		at := r.req.ScheduledAt
		*dest[6].(**time.Time) = &at
	}
	*dest[7].(*string) = string(r.req.Status)
	if !r.req.BookedTime.IsZero() {
		bt := r.req.BookedTime.String()
		*dest[8].(**string) = &bt
	}
	if r.req.Confirmation != "" {
		c := r.req.Confirmation
		*dest[9].(**string) = &c
	}
	if r.req.LastError != "" {
		le := r.req.LastError
		*dest[10].(**string) = &le
	}
	*dest[11].(*time.Time) = r.req.CreatedAt
	*dest[12].(*time.Time) = r.req.UpdatedAt
	return nil
}

// idRow is what a guarded UPDATE ... RETURNING id produces when it
// matched a row.
type idRow struct{ id string }

func (r idRow) Scan(dest ...any) error {
	*dest[0].(*string) = r.id
	return nil
}

// noRow is a query that matched nothing.
type noRow struct{}

func (noRow) Scan(...any) error { return db.ErrNotFound }

type fakeRows struct {
	reqs []Request
	i    int
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.reqs)
}
func (r *fakeRows) Scan(dest ...any) error {
	return requestRow{req: r.reqs[r.i-1]}.Scan(dest...)
}

// fakeDB serves QueryRow answers from a queue and records the SQL it was
// handed.
type fakeDB struct {
	rows     []db.Row
	listRows *fakeRows
	sqls     []string
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) error {
	f.sqls = append(f.sqls, sql)
	return nil
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (db.Rows, error) {
	f.sqls = append(f.sqls, sql)
	return f.listRows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) db.Row {
	f.sqls = append(f.sqls, sql)
	if len(f.rows) == 0 {
		return noRow{}
	}
	row := f.rows[0]
	f.rows = f.rows[1:]
	return row
}

func storedRequest(status Status) Request {
	return Request{
		ID:            "ab12cd34",
		Phone:         "+15550001111",
		RequestedDate: timing.CivilDate{Year: 2026, Month: time.September, Day: 12},
		RequestedTime: timing.TimeOfDay{Hour: 7, Minute: 30},
		Players:       2,
		Status:        status,
		CreatedAt:     time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCancelScheduled(t *testing.T) {
	f := &fakeDB{rows: []db.Row{
		requestRow{req: storedRequest(StatusScheduled)},
		idRow{id: "ab12cd34"},
	}}

	if err := NewRepo(f).Cancel(context.Background(), "ab12cd34"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	update := f.sqls[len(f.sqls)-1]
	if !strings.Contains(update, "status IN ('pending','scheduled')") ||
		!strings.Contains(update, "RETURNING id") {
		t.Errorf("cancel update is not a guarded CAS: %q", update)
	}
}

func TestCancelExecutingConflicts(t *testing.T) {
	f := &fakeDB{rows: []db.Row{requestRow{req: storedRequest(StatusExecuting)}}}

	if err := NewRepo(f).Cancel(context.Background(), "ab12cd34"); !errors.Is(err, ErrConflict) {
		t.Fatalf("Cancel of executing request: got %v, want ErrConflict", err)
	}
}

func TestCancelRefusesWhenClaimWinsRace(t *testing.T) {
	// The read sees scheduled, but a scheduler pass claims the request
	// before the guarded update lands. Zero rows updated must surface as
	// ErrConflict, never as silent success.
	f := &fakeDB{rows: []db.Row{
		requestRow{req: storedRequest(StatusScheduled)},
		noRow{},
		requestRow{req: storedRequest(StatusExecuting)},
	}}

	if err := NewRepo(f).Cancel(context.Background(), "ab12cd34"); !errors.Is(err, ErrConflict) {
		t.Fatalf("Cancel after lost race: got %v, want ErrConflict", err)
	}
}

func TestCancelIdempotentAfterConcurrentCancel(t *testing.T) {
	f := &fakeDB{rows: []db.Row{
		requestRow{req: storedRequest(StatusScheduled)},
		noRow{},
		requestRow{req: storedRequest(StatusCancelled)},
	}}

	if err := NewRepo(f).Cancel(context.Background(), "ab12cd34"); err != nil {
		t.Fatalf("Cancel racing another cancel should succeed quietly: %v", err)
	}
}

func TestMarkConfirmedRequiresExecuting(t *testing.T) {
	// The attempt insert goes through Exec; the status update matches no
	// row because the request already left executing.
	f := &fakeDB{rows: []db.Row{noRow{}}}

	err := NewRepo(f).MarkConfirmed(context.Background(), "ab12cd34",
		timing.TimeOfDay{Hour: 7, Minute: 30}, "CONF-1")
	if err == nil || !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("MarkConfirmed outside executing: got %v, want wrapped ErrNotFound", err)
	}
}

func TestListDueScansRows(t *testing.T) {
	due := storedRequest(StatusScheduled)
	due.ScheduledAt = time.Date(2026, time.September, 5, 11, 30, 0, 0, time.UTC)
	f := &fakeDB{listRows: &fakeRows{reqs: []Request{due}}}

	got, err := NewRepo(f).ListDue(context.Background(), due.ScheduledAt)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListDue returned %d requests, want 1", len(got))
	}
	if got[0].ID != due.ID || got[0].Status != StatusScheduled ||
		got[0].RequestedTime != due.RequestedTime || !got[0].ScheduledAt.Equal(due.ScheduledAt) {
		t.Errorf("ListDue row mangled: %+v", got[0])
	}
}
