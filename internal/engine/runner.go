package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/batch"
	"github.com/example/teetime-agent/internal/booking"
	"github.com/example/teetime-agent/internal/course"
	"github.com/example/teetime-agent/internal/domschema"
	"github.com/example/teetime-agent/internal/executor"
	"github.com/example/teetime-agent/internal/session"
	"github.com/example/teetime-agent/internal/teesheet"
	"github.com/example/teetime-agent/internal/timing"
)

// BrowserRunner executes batches in a fresh browser session each pass.
// A cold start per pass costs seconds but means no pass inherits a
// half-broken page from the previous one.
type BrowserRunner struct {
	Session        session.Options
	Course         course.Identity
	Lenient        bool
	Schema         domschema.Schema
	ElementTimeout time.Duration
	ConfirmTimeout time.Duration
	Log            *zap.Logger
}

var _ Runner = (*BrowserRunner)(nil)

func (r *BrowserRunner) components() (*domschema.Resolver, *teesheet.Navigator, *teesheet.Catalog, *executor.Executor) {
	res := domschema.NewResolver(r.Schema, float64(r.ElementTimeout.Milliseconds()), r.Log)
	return res,
		teesheet.NewNavigator(res, r.Log),
		teesheet.NewCatalog(res, r.Log),
		executor.New(res, r.Log, r.ConfirmTimeout)
}

// Resolver builds a standalone resolver against the runner's schema, for
// callers that drive a session directly.
func (r *BrowserRunner) Resolver() *domschema.Resolver {
	res, _, _, _ := r.components()
	return res
}

func (r *BrowserRunner) Run(ctx context.Context, requests []booking.Request) []batch.Outcome {
	res, nav, cat, exec := r.components()

	opts := r.Session
	opts.Resolver = res
	opts.Log = r.Log

	sess, err := session.Start(opts)
	if err != nil {
		return failAll(requests, fmt.Errorf("start session: %w", err))
	}
	defer sess.Close()

	if err := sess.Login(); err != nil {
		return failAll(requests, err)
	}

	live := &batch.Live{Session: sess, Nav: nav, Catalog: cat, Executor: exec}
	orch := batch.NewOrchestrator(live, live, live, r.Course, r.Lenient, r.Log)
	return orch.Run(ctx, requests)
}

// CancelReservation opens its own short-lived session to remove a
// confirmed reservation from the club site.
func (r *BrowserRunner) CancelReservation(ctx context.Context, date timing.CivilDate, t timing.TimeOfDay) error {
	res, _, _, exec := r.components()

	opts := r.Session
	opts.Resolver = res
	opts.Log = r.Log

	sess, err := session.Start(opts)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.Close()

	if err := sess.Login(); err != nil {
		return err
	}
	if err := sess.Goto("/web/pages/golf"); err != nil {
		return err
	}
	return exec.Cancel(sess.Page(), date, t)
}

func failAll(requests []booking.Request, err error) []batch.Outcome {
	out := make([]batch.Outcome, 0, len(requests))
	for _, req := range requests {
		out = append(out, batch.Outcome{RequestID: req.ID, Err: err})
	}
	return out
}
