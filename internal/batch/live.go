package batch

import (
	"github.com/example/teetime-agent/internal/course"
	"github.com/example/teetime-agent/internal/executor"
	"github.com/example/teetime-agent/internal/session"
	"github.com/example/teetime-agent/internal/teesheet"
	"github.com/example/teetime-agent/internal/timing"
)

// Live binds the orchestrator's interfaces to a real browser session.
type Live struct {
	Session  *session.Session
	Nav      *teesheet.Navigator
	Catalog  *teesheet.Catalog
	Executor *executor.Executor
}

var (
	_ Sheet   = (*Live)(nil)
	_ Booker  = (*Live)(nil)
	_ Session = (*Live)(nil)
)

func (l *Live) Prepare(c course.Identity, d timing.CivilDate) error {
	if err := l.Session.Goto("/web/pages/golf"); err != nil {
		return err
	}
	page := l.Session.Page()
	if err := l.Nav.SelectCourse(page, c); err != nil {
		return err
	}
	return l.Nav.SelectDate(page, d)
}

func (l *Live) Slots() ([]teesheet.Slot, error) {
	return l.Catalog.Build(l.Session.Page())
}

func (l *Live) Book(slot teesheet.Slot, players int) (executor.Result, error) {
	return l.Executor.Book(l.Session.Page(), slot, players)
}

func (l *Live) Healthy() bool { return l.Session.Healthy() }

func (l *Live) Relogin() error { return l.Session.Relogin() }
