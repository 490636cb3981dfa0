package domschema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCoversCoreKeys(t *testing.T) {
	schema := Default()
	keys := []string{
		"login.member", "login.password", "login.submit",
		"course.dropdown_trigger", "course.native_select", "course.text_link",
		"date.input", "date.calendar_trigger", "date.day_cell", "date.day_tab",
		"slots.item", "slots.free_span", "slots.reserve_button",
		"modal.container", "players.group", "players.radio", "players.rows",
		"guests.tbd_button", "guests.name_input",
		"confirm.book_now", "confirm.success", "confirm.error",
		"cancel.rows", "cancel.link", "cancel.confirm",
	}
	for _, k := range keys {
		strategies, ok := schema.Strategies(k)
		if !ok {
			t.Errorf("missing key %q", k)
			continue
		}
		if len(strategies) == 0 {
			t.Errorf("key %q has no strategies", k)
		}
	}
}

func TestDefaultStrategyKindsValid(t *testing.T) {
	for key, strategies := range Default() {
		for i, st := range strategies {
			switch st.Kind {
			case KindCSS, KindXPath, KindText:
			default:
				t.Errorf("%s[%d]: unknown kind %q", key, i, st.Kind)
			}
			if st.Selector == "" {
				t.Errorf("%s[%d]: empty selector", key, i)
			}
		}
	}
}

func TestLoadOverrideReplacesWholeChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	err := os.WriteFile(path, []byte(`
elements:
  login.submit:
    - kind: css
      selector: "#loginBtn"
    - kind: xpath
      selector: "//button[@name='login']"
`), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	schema, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := schema.Strategies("login.submit")
	if len(got) != 2 {
		t.Fatalf("override not applied: got %d strategies", len(got))
	}
	if got[0].Kind != KindCSS || got[0].Selector != "#loginBtn" {
		t.Errorf("first strategy = %+v", got[0])
	}
	if got[1].Kind != KindXPath {
		t.Errorf("second strategy kind = %q", got[1].Kind)
	}

	// Untouched keys keep the defaults.
	if _, ok := schema.Strategies("login.member"); !ok {
		t.Error("default keys lost after override")
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, []byte(`
elements:
  login.submit:
    - kind: jquery
      selector: "#x"
`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown strategy kind")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/schema.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	schema, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(schema) != len(Default()) {
		t.Errorf("empty path should yield defaults: got %d keys, want %d", len(schema), len(Default()))
	}
}

func TestSelectorSyntax(t *testing.T) {
	tests := []struct {
		st   Strategy
		want string
	}{
		{Strategy{Kind: KindCSS, Selector: "div.slot"}, "div.slot"},
		{Strategy{Kind: KindXPath, Selector: "//a[text()='12']"}, "xpath=//a[text()='12']"},
		{Strategy{Kind: KindText, Selector: "Book Now"}, "text=Book Now"},
	}
	for _, tt := range tests {
		if got := Selector(tt.st); got != tt.want {
			t.Errorf("Selector(%+v) = %q, want %q", tt.st, got, tt.want)
		}
	}
}
