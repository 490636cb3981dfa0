// Package session owns the browser lifecycle and authentication against
// the club website. Everything above it works with an already
// authenticated page.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/domschema"
)

// ErrAuthFailed means the credentials were rejected or the post-login
// page never materialized. It is not retryable with the same credentials.
var ErrAuthFailed = errors.New("authentication failed")

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures a session.
type Options struct {
	BaseURL  string
	Member   string
	Password string
	Headless bool

	// StateDir, when set, persists cookies between runs so a warm session
	// can skip the login form entirely.
	StateDir string

	NavTimeout time.Duration
	Resolver   *domschema.Resolver
	Log        *zap.Logger
}

// Session is an authenticated browser against the club site. Not safe for
// concurrent use; the orchestrator serializes access.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	opts     Options
	loggedIn bool
}

// Start launches the browser and opens a page. The caller must Close the
// session, including on error paths after a successful Start.
func Start(opts Options) (*Session, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	s := &Session{pw: pw, opts: opts}

	s.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
		},
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport:  &playwright.Size{Width: 1280, Height: 900},
	}
	stateFile := s.stateFile()
	if stateFile != "" {
		if _, err := os.Stat(stateFile); err == nil {
			ctxOpts.StorageStatePath = playwright.String(stateFile)
		}
	}

	s.context, err = s.browser.NewContext(ctxOpts)
	if err != nil {
		// A stale or corrupt state file should not keep us from starting.
		if stateFile != "" {
			opts.Log.Warn("stored session unusable, starting cold", zap.Error(err))
			ctxOpts.StorageStatePath = nil
			s.context, err = s.browser.NewContext(ctxOpts)
		}
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("create context: %w", err)
		}
	}

	s.page, err = s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page.SetDefaultTimeout(float64(opts.NavTimeout.Milliseconds()))
	s.page.SetDefaultNavigationTimeout(float64(opts.NavTimeout.Milliseconds()))

	return s, nil
}

func (s *Session) stateFile() string {
	if s.opts.StateDir == "" {
		return ""
	}
	return filepath.Join(s.opts.StateDir, "state.json")
}

// Page exposes the underlying page for navigation and slot discovery.
func (s *Session) Page() playwright.Page { return s.page }

// Goto navigates to a site-relative path and waits for the DOM.
func (s *Session) Goto(path string) error {
	url := strings.TrimRight(s.opts.BaseURL, "/") + path
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", path, err)
	}
	return nil
}

// Healthy probes whether the session is still authenticated: we are on a
// club page and not parked on the login form.
func (s *Session) Healthy() bool {
	url := s.page.URL()
	if url == "" || strings.Contains(strings.ToLower(url), "login") {
		return false
	}
	return s.loggedIn
}

// Login drives the Liferay login portlet. It is idempotent: a session
// that already passes the health probe returns immediately.
func (s *Session) Login() error {
	if s.Healthy() {
		return nil
	}
	log := s.opts.Log

	if err := s.Goto("/web/pages/login"); err != nil {
		return err
	}

	res := s.opts.Resolver
	scope := domschema.PageScope(s.page)

	member, err := res.Resolve(scope, "login.member")
	if err != nil {
		// No login form in sight. If a stored session got us straight to a
		// member page we are already in.
		if !strings.Contains(strings.ToLower(s.page.URL()), "login") {
			log.Info("restored session still valid, skipping login")
			s.loggedIn = true
			return nil
		}
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if err := member.Fill(s.opts.Member); err != nil {
		return fmt.Errorf("fill member number: %w", err)
	}

	password, err := res.Resolve(scope, "login.password")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if err := password.Fill(s.opts.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	submit, err := res.Resolve(scope, "login.submit")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if err := submit.Click(); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	// The portlet redirects on success; poll the URL instead of racing a
	// single navigation wait against Liferay's intermediate hops.
	deadline := time.Now().Add(s.opts.NavTimeout)
	for time.Now().Before(deadline) {
		url := strings.ToLower(s.page.URL())
		if url != "" && !strings.Contains(url, "login") {
			s.loggedIn = true
			log.Info("logged in", zap.String("url", s.page.URL()))
			s.saveState()
			return nil
		}
		if res.Present(scope, "confirm.error") {
			return fmt.Errorf("%w: site rejected credentials", ErrAuthFailed)
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("%w: still on login page after %s", ErrAuthFailed, s.opts.NavTimeout)
}

// Relogin drops the authenticated flag and runs the login flow again.
// Used once per batch when the site expires the session mid-run.
func (s *Session) Relogin() error {
	s.loggedIn = false
	return s.Login()
}

func (s *Session) saveState() {
	stateFile := s.stateFile()
	if stateFile == "" {
		return
	}
	if err := os.MkdirAll(s.opts.StateDir, 0o700); err != nil {
		s.opts.Log.Warn("cannot create state dir", zap.Error(err))
		return
	}
	if _, err := s.context.StorageState(stateFile); err != nil {
		s.opts.Log.Warn("cannot persist session state", zap.Error(err))
	}
}

// Close tears the whole stack down. Safe to call at any point after
// Start, including partially constructed sessions.
func (s *Session) Close() {
	if s.page != nil {
		s.page.Close()
	}
	if s.context != nil {
		s.context.Close()
	}
	if s.browser != nil {
		s.browser.Close()
	}
	if s.pw != nil {
		s.pw.Stop()
	}
}
