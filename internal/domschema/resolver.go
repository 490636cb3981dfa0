package domschema

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// ErrElementNotFound means every strategy for a key was exhausted without a
// visible match. Callers treat it as "the page does not look like we
// expect", not as a transient wait failure.
var ErrElementNotFound = errors.New("element not found")

// Scope is anything a selector can be resolved against: a page, a frame,
// or a previously resolved locator. Scoping matters; the player count
// group, for example, must be resolved inside the booking modal because
// the page behind it has a look-alike widget.
type Scope interface {
	Locator(selector string) playwright.Locator
}

type pageScope struct{ page playwright.Page }

func (s pageScope) Locator(sel string) playwright.Locator { return s.page.Locator(sel) }

type locatorScope struct{ loc playwright.Locator }

func (s locatorScope) Locator(sel string) playwright.Locator { return s.loc.Locator(sel) }

// PageScope adapts a page for resolution.
func PageScope(p playwright.Page) Scope { return pageScope{page: p} }

// LocatorScope adapts a locator for nested resolution.
func LocatorScope(l playwright.Locator) Scope { return locatorScope{loc: l} }

// Resolver walks a key's strategies in order and returns the first one
// that yields a visible element.
type Resolver struct {
	schema   Schema
	perTryMS float64
	log      *zap.Logger
}

// NewResolver builds a resolver. perTryMillis bounds the visibility wait
// for each individual strategy, so the worst case for a key is
// perTryMillis times the length of its chain.
func NewResolver(schema Schema, perTryMillis float64, log *zap.Logger) *Resolver {
	if perTryMillis <= 0 {
		perTryMillis = 2000
	}
	return &Resolver{schema: schema, perTryMS: perTryMillis, log: log}
}

// Selector renders a strategy into playwright's selector syntax.
func Selector(st Strategy) string {
	switch st.Kind {
	case KindXPath:
		return "xpath=" + st.Selector
	case KindText:
		return "text=" + st.Selector
	default:
		return st.Selector
	}
}

// Resolve returns a locator for the first visible match of key within
// scope. Optional args are interpolated into each strategy's selector
// (day numbers, player counts, course names).
func (r *Resolver) Resolve(scope Scope, key string, args ...any) (playwright.Locator, error) {
	strategies, ok := r.schema.Strategies(key)
	if !ok {
		return nil, fmt.Errorf("%w: no schema entry for %q", ErrElementNotFound, key)
	}

	for i, st := range strategies {
		sel := st.Selector
		if len(args) > 0 {
			sel = fmt.Sprintf(sel, args...)
		}
		loc := scope.Locator(Selector(Strategy{Kind: st.Kind, Selector: sel})).First()
		err := loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(r.perTryMS),
		})
		if err == nil {
			if i > 0 {
				r.log.Debug("resolved via fallback",
					zap.String("key", key), zap.Int("strategy", i))
			}
			return loc, nil
		}
	}
	r.log.Debug("all strategies exhausted", zap.String("key", key),
		zap.Int("strategies", len(strategies)))
	return nil, fmt.Errorf("%w: %s", ErrElementNotFound, key)
}

// ResolveAll returns every match of the first strategy that has at least
// one attached element. Unlike Resolve it does not wait for visibility;
// it is meant for enumerating lists that are already rendered.
func (r *Resolver) ResolveAll(scope Scope, key string, args ...any) ([]playwright.Locator, error) {
	strategies, ok := r.schema.Strategies(key)
	if !ok {
		return nil, fmt.Errorf("%w: no schema entry for %q", ErrElementNotFound, key)
	}

	for _, st := range strategies {
		sel := st.Selector
		if len(args) > 0 {
			sel = fmt.Sprintf(sel, args...)
		}
		loc := scope.Locator(Selector(Strategy{Kind: st.Kind, Selector: sel}))
		n, err := loc.Count()
		if err != nil || n == 0 {
			continue
		}
		return loc.All()
	}
	return nil, fmt.Errorf("%w: %s", ErrElementNotFound, key)
}

// Present reports whether any strategy for key currently matches, without
// waiting. Used for cheap state probes like "is there an error banner".
func (r *Resolver) Present(scope Scope, key string, args ...any) bool {
	strategies, ok := r.schema.Strategies(key)
	if !ok {
		return false
	}
	for _, st := range strategies {
		sel := st.Selector
		if len(args) > 0 {
			sel = fmt.Sprintf(sel, args...)
		}
		loc := scope.Locator(Selector(Strategy{Kind: st.Kind, Selector: sel}))
		if n, err := loc.Count(); err == nil && n > 0 {
			return true
		}
	}
	return false
}
