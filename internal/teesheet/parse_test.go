package teesheet

import (
	"testing"

	"github.com/example/teetime-agent/internal/timing"
)

func TestParseTimeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want timing.TimeOfDay
		ok   bool
	}{
		{"7:30 AM", timing.TimeOfDay{Hour: 7, Minute: 30}, true},
		{"07:30AM", timing.TimeOfDay{Hour: 7, Minute: 30}, true},
		{"12:00 PM", timing.TimeOfDay{Hour: 12}, true},
		{"12:10 AM", timing.TimeOfDay{Hour: 0, Minute: 10}, true},
		{"2:40 pm", timing.TimeOfDay{Hour: 14, Minute: 40}, true},
		// surrounding row text, the common case
		{"  7:30 AM\nNorthgate\n4 Open  ", timing.TimeOfDay{Hour: 7, Minute: 30}, true},
		{"Reserve 9:10 a.m. - 3 available", timing.TimeOfDay{Hour: 9, Minute: 10}, true},
		// bare 24h label
		{"14:10", timing.TimeOfDay{Hour: 14, Minute: 10}, true},
		{"no time here", timing.TimeOfDay{}, false},
		{"", timing.TimeOfDay{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTimeLabel(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseTimeLabel(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseTimeLabel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		empty     bool
		reserved  bool
		freeSeats int
		want      State
	}{
		{"fully open row", true, false, 4, StateEmpty},
		{"open marker without seat spans", true, false, 0, StateEmpty},
		{"partially filled", false, false, 2, StatePartial},
		{"explicitly reserved", false, true, 0, StateReserved},
		{"no seats and no marker", false, false, 0, StateReserved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.empty, tt.reserved, tt.freeSeats); got != tt.want {
				t.Errorf("Classify(%v, %v, %d) = %s, want %s",
					tt.empty, tt.reserved, tt.freeSeats, got, tt.want)
			}
		})
	}
}

func TestSlotBookable(t *testing.T) {
	s := Slot{Capacity: 2, State: StatePartial}
	if !s.Bookable(2) {
		t.Error("2 seats should take a pair")
	}
	if s.Bookable(3) {
		t.Error("2 seats must not take a trio")
	}
	if (Slot{Capacity: 4, State: StateReserved}).Bookable(1) {
		t.Error("reserved rows are never bookable")
	}
}
