// Package domschema is the single source of truth for locating elements on
// the club's booking site.
//
// Every logical UI element has a key and an ordered list of locator
// strategies. Components ask the resolver for a key; nobody embeds
// selectors inline. When the site changes its markup, this file (or the
// YAML override) is the only thing that needs to change.
package domschema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	// KindCSS is a CSS selector.
	KindCSS Kind = "css"
	// KindXPath is an XPath expression.
	KindXPath Kind = "xpath"
	// KindText matches by visible text.
	KindText Kind = "text"
)

// Strategy is one way of locating an element. Strategies for a key are
// tried strictly in order; the first visible match wins.
type Strategy struct {
	Kind     Kind   `yaml:"kind"`
	Selector string `yaml:"selector"`
}

// Schema maps element keys to their ordered strategy lists. It is loaded
// once at startup and treated as immutable afterwards.
type Schema map[string][]Strategy

// Strategies returns the strategy list for a key.
func (s Schema) Strategies(key string) ([]Strategy, bool) {
	st, ok := s[key]
	return st, ok
}

// Load returns the built-in schema, merged with overrides from the given
// YAML file when path is non-empty. Overridden keys replace their entire
// strategy list; merge at strategy granularity would make ordering
// ambiguous.
func Load(path string) (Schema, error) {
	schema := Default()
	if path == "" {
		return schema, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dom schema: %w", err)
	}

	var override struct {
		Elements map[string][]Strategy `yaml:"elements"`
	}
	if err := yaml.Unmarshal(b, &override); err != nil {
		return nil, fmt.Errorf("parse dom schema: %w", err)
	}

	for key, strategies := range override.Elements {
		if len(strategies) == 0 {
			return nil, fmt.Errorf("dom schema override %q has no strategies", key)
		}
		for _, st := range strategies {
			switch st.Kind {
			case KindCSS, KindXPath, KindText:
			default:
				return nil, fmt.Errorf("dom schema override %q: unknown kind %q", key, st.Kind)
			}
		}
		schema[key] = strategies
	}
	return schema, nil
}

func css(sel string) Strategy   { return Strategy{Kind: KindCSS, Selector: sel} }
func xpath(sel string) Strategy { return Strategy{Kind: KindXPath, Selector: sel} }
func text(sel string) Strategy  { return Strategy{Kind: KindText, Selector: sel} }

// Default is the selector inventory for the Northstar tee sheet, grouped
// by functional area. Fallback chains are ordered most-specific first.
func Default() Schema {
	return Schema{
		// login form (Liferay portlet)
		"login.member":   {css("input[name='_com_liferay_login_web_portlet_LoginPortlet_login']")},
		"login.password": {css("input[name='_com_liferay_login_web_portlet_LoginPortlet_password']")},
		"login.submit":   {css("button[type='submit']")},

		// course selection
		"course.dropdown_trigger": {
			css("[class*='select'][class*='course']"),
			css("div[class*='multiselect']"),
			css("button[class*='dropdown']"),
			css(".course-dropdown"),
			css("[aria-label*='course' i]"),
			css("[placeholder*='course' i]"),
		},
		"course.option": {
			css("input[type='checkbox']"),
			css("li[class*='option']"),
			css("div[class*='option']"),
			css("label[class*='checkbox']"),
		},
		"course.dropdown_close": {
			css("[class*='close']"),
			css("button[aria-label='close']"),
		},
		"course.native_select": {
			css("select[id*='course']"),
			css("select[name*='course']"),
			css("select[id*='Course']"),
			css("select[name*='Course']"),
			css("select.course-select"),
			css("#courseSelect"),
		},
		"course.selected_option": {css("select option:checked, select option[selected]")},
		// %s: lowercase course name
		"course.verify_text": {
			xpath("//*[contains(translate(text(), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '%s')]"),
		},
		// %s: course name
		"course.text_link": {
			xpath("//*[contains(text(), '%s')][self::button or self::a or self::span]"),
			xpath("//*[contains(text(), '%s')][contains(@class, 'select') or contains(@class, 'dropdown')]"),
			xpath("//*[contains(text(), '%s')][self::div]"),
		},

		// date selection
		"date.input": {
			css("input[type='text'][id*='date']"),
			css("input[type='date']"),
			css("input[id*='date']"),
			css("input[name*='date']"),
			css("input[class*='date']"),
			css("input[placeholder*='date' i]"),
			css("input[placeholder*='mm/dd' i]"),
			css(".datepicker input"),
		},
		"date.search_submit": {
			css("button[type='submit'], input[type='submit'], button.search, .btn-search"),
		},
		"date.calendar_trigger": {
			css(".calendar-trigger, .datepicker-trigger, [class*='calendar']"),
			css("button[aria-label*='calendar' i], .ui-datepicker-trigger"),
			css("span.icon-calendar, i.fa-calendar"),
		},
		"date.calendar_popup": {
			css(".ui-datepicker, .datepicker, [class*='calendar-popup'], .ui-datepicker-calendar"),
		},
		"date.month_select": {
			css("select.ui-datepicker-month"),
			css("select[data-handler='selectMonth']"),
			css("select[class*='month'], select[name*='month']"),
		},
		"date.year_select": {
			css("select.ui-datepicker-year"),
			css("select[data-handler='selectYear']"),
			css("select[class*='year'], select[name*='year']"),
		},
		"date.calendar_header": {
			css(".ui-datepicker-title"),
			css(".datepicker-title"),
			css("[class*='calendar-header'], [class*='datepicker-header']"),
		},
		"date.nav_next": {
			css("a.ui-datepicker-next, button.ui-datepicker-next"),
			css("[data-handler='next']"),
			css("a[title='Next'], button[title='Next']"),
			css("span.ui-icon-circle-triangle-e"),
			css("a[class*='next'], button[class*='next']"),
		},
		"date.nav_prev": {
			css("a.ui-datepicker-prev, button.ui-datepicker-prev"),
			css("[data-handler='prev']"),
			css("a[title='Prev'], button[title='Prev']"),
			css("span.ui-icon-circle-triangle-w"),
			css("a[class*='prev'], button[class*='prev']"),
		},
		// %d: day of month
		"date.day_cell": {
			xpath("//td[@data-date='%d']"),
			xpath("//a[text()='%d']"),
			xpath("//td[contains(@class, 'day') and text()='%d']"),
			xpath("//td[normalize-space(text())='%d']"),
		},
		"date.day_tab": {
			css(".day-tab, [class*='day-tab'], a[href*='day'], [data-day], .teetime-day-tab, .nav-tabs a"),
		},
		"date.slots_present": {
			css(".custom-free-slot-span, .teetime-row, [class*='tee-time'], li.ui-datascroller-item"),
		},

		// slot discovery (PrimeFaces datascroller)
		"slots.container":       {css(".ui-datascroller-content, .ui-datascroller-list")},
		"slots.item":            {css("li.ui-datascroller-item")},
		"slots.empty_marker":    {css("div.Empty")},
		"slots.reserved_marker": {css("div.Reserved")},
		"slots.free_span":       {css("span.custom-free-slot-span")},
		"slots.free_link":       {css("a.custom-free-slot-link")},
		"slots.reserve_button": {
			css("a[id*='reserve_button']"),
			css("a.slot-link"),
		},
		"slots.course_header": {css("h1, h2, h3, h4, .course-name, .course-header")},

		// booking modal. After clicking Reserve everything must be scoped
		// to the modal: the page also carries a .ui-selectonebutton time
		// period filter that otherwise shadows the player count group.
		"modal.container": {
			css(".modal, .dialog, [class*='popup'], form[class*='booking'], [class*='confirm']"),
		},
		"players.group": {
			css(".reservation-players"),
			css(".ui-selectonebutton"),
			css("[class*='players-sel']"),
		},
		// %d: player count
		"players.radio": {css("input[type='radio'][value='%d']")},
		"players.native_select": {
			css("select[id*='player'], select[id*='golfer']"),
			css("select[name*='player'], select[name*='golfer']"),
			css("select[id*='numPlayers'], select[id*='numberOfPlayers']"),
		},
		"players.rows": {
			css("[id*='playersTable'] tbody tr[data-ri]"),
			css("[id*='player'] tbody tr[data-ri]"),
			css("table[id*='player'] tbody tr"),
			css(".player-row"),
			css("[class*='player-row']"),
		},
		"players.rows_wait": {css("[id*='playersTable'] tbody tr, table[id*='player'] tbody tr")},

		// TBD registered guests
		"guests.tbd_button": {
			css("a[id*='tbd'], span[id*='tbd'], button[id*='tbd']"),
			css("[class*='btn-tbd'], a[class*='tbd'], span[class*='tbd'], button[class*='tbd']"),
			css("a[id*='TBD'], span[id*='TBD'], button[id*='TBD'], [class*='TBD']"),
			xpath(".//a[contains(text(), 'TBD')] | .//span[contains(text(), 'TBD')] | .//button[contains(text(), 'TBD')]"),
			xpath(".//*[contains(@title, 'TBD')] | .//*[contains(@aria-label, 'TBD')]"),
		},
		"guests.name_input": {
			css("input[id*='player_input']"),
			css("input[id*='player'], input[name*='player']"),
			css("input.ui-autocomplete-input"),
			css("input[type='text']"),
		},

		// booking completion
		"confirm.book_now": {
			css("a[id*='bookTeeTimeAction']"),
			text("Book Now"),
			xpath("//a[contains(., 'Book')]"),
			xpath("//button[contains(., 'Confirm')]"),
			xpath("//button[contains(., 'Submit')]"),
			xpath("//button[contains(., 'Book')]"),
			xpath("//input[@type='submit']"),
		},
		"confirm.success": {
			xpath("//*[contains(text(), 'success') or contains(text(), 'confirm') or contains(text(), 'thank')]"),
		},
		"confirm.error": {
			css(".ui-messages-error, .ui-message-error, .ui-growl-message-error"),
			css(".error, .errors, [class*='error']"),
			css(".alert, .alert-danger"),
			css("[role='alert'], [aria-live='assertive'], [aria-live='polite']"),
		},

		// cancellation flow
		"cancel.page_marker": {css("form, .reservations, [class*='reservation']")},
		"cancel.form":        {css("form[name*='memberReservations']")},
		"cancel.rows":        {css("table tbody tr")},
		"cancel.link": {
			css("a[aria-label='Cancel Reservation']"),
			css("a[title='Cancel Reservation']"),
			css("a[class*='cancel'], button[class*='cancel']"),
		},
		"cancel.confirm": {
			css("button[class*='confirm']"),
			css("button[class*='yes']"),
			css("input[type='submit'][value*='Yes'], input[type='submit'][value*='Confirm']"),
			css(".modal button[class*='primary']"),
			xpath("//button[contains(text(), 'Yes')]"),
			xpath("//button[contains(text(), 'Confirm')]"),
			xpath("//button[contains(text(), 'OK')]"),
			xpath("//a[contains(text(), 'Yes')] | //a[contains(text(), 'Confirm')]"),
			xpath("//*[contains(@class, 'ui-dialog')]//button[contains(text(), 'Yes')]"),
		},

		// generic page-readiness probe after navigation
		"page.loaded": {
			css(".custom-free-slot-span, .teetime-row, [class*='tee-time'], form"),
		},
	}
}
