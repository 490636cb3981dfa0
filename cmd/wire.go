package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/booking"
	"github.com/example/teetime-agent/internal/config"
	"github.com/example/teetime-agent/internal/course"
	"github.com/example/teetime-agent/internal/creds"
	"github.com/example/teetime-agent/internal/db"
	"github.com/example/teetime-agent/internal/domschema"
	"github.com/example/teetime-agent/internal/engine"
	"github.com/example/teetime-agent/internal/logging"
	"github.com/example/teetime-agent/internal/notify"
	"github.com/example/teetime-agent/internal/session"
	"github.com/example/teetime-agent/internal/timing"
)

// app is the wired-up process: everything a command needs, built once.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	db     *db.DB
	repo   *booking.Repo
	engine *engine.Engine
	runner *engine.BrowserRunner
	creds  creds.Store
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: d, repo: booking.NewRepo(d)}

	a.creds = a.credStore()

	schema, err := domschema.Load(cfg.SchemaPath)
	if err != nil {
		a.close()
		return nil, err
	}

	target, ok := course.ByName(cfg.Courses(), cfg.CourseName)
	if !ok {
		a.close()
		return nil, fmt.Errorf("unknown course %q", cfg.CourseName)
	}

	// Store-only commands still work without a login; browser commands
	// will fail at authentication instead of here.
	login, err := a.creds.Get(ctx)
	if err != nil {
		a.log.Warn("no club credentials configured", zap.Error(err))
	}

	a.runner = &engine.BrowserRunner{
		Session: session.Options{
			BaseURL:    cfg.ClubBaseURL,
			Member:     login.Member,
			Password:   login.Password,
			Headless:   cfg.Headless,
			StateDir:   stateDir(),
			NavTimeout: cfg.NavTimeout,
		},
		Course:         target,
		Lenient:        cfg.LenientCourseMatch,
		Schema:         schema,
		ElementTimeout: cfg.ElementTimeout,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Log:            log,
	}

	a.engine = engine.New(engine.Options{
		Store:     a.repo,
		Runner:    a.runner,
		Canceller: a.runner,
		Notifier:  a.notifier(),
		Window: timing.Window{
			DaysInAdvance: cfg.DaysInAdvance,
			OpenHour:      cfg.OpenHour,
			OpenMinute:    cfg.OpenMinute,
			Location:      cfg.Location(),
		},
		Log: log,
	})

	return a, nil
}

// credStore prefers the environment, then the sealed postgres store when
// a key is configured.
func (a *app) credStore() creds.Store {
	stores := creds.Fallback{
		creds.EnvStore{Member: a.cfg.MemberNumber, Password: a.cfg.Password},
	}
	if len(a.cfg.CredentialKey) > 0 {
		pg, err := creds.NewPGStore(a.db, a.cfg.CredentialKey)
		if err != nil {
			a.log.Warn("sealed credential store unavailable", zap.Error(err))
		} else {
			stores = append(stores, pg)
		}
	}
	return stores
}

func (a *app) notifier() notify.Notifier {
	logged := notify.Logger{Log: a.log}
	if a.cfg.SMTPHost == "" || len(a.cfg.MailTo) == 0 {
		return logged
	}
	mailer := notify.NewMailer(a.cfg.SMTPHost, a.cfg.SMTPPort,
		a.cfg.SMTPUser, a.cfg.SMTPPass, a.cfg.MailFrom, a.cfg.MailTo, a.log)
	return notify.Multi{logged, mailer}
}

func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".teetime-agent", "browser-state")
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.log != nil {
		a.log.Sync()
	}
}
