package course

import "testing"

func TestSheetIndexFromElementID(t *testing.T) {
	tests := []struct {
		name      string
		elementID string
		want      int
		wantOK    bool
	}{
		{
			"northgate slot div",
			"_teeTimePortlet_WAR_northstarportlet_:teeTimeForm:teeTimeCourses:0:teeTimeSlots:67:slotTee:0:slotTeeDIV",
			0, true,
		},
		{
			"walden reserve button",
			"_teeTimePortlet_WAR_northstarportlet_:teeTimeForm:teeTimeCourses:1:teeTimeSlots:12:slotTee:0:reserve_button",
			1, true,
		},
		{
			"third course",
			"x:teeTimeCourses:2:teeTimeSlots:0:slotTee:0:slotTeeDIV",
			2, true,
		},
		{"no course info", "some_random_id", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SheetIndexFromElementID(tt.elementID)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("index = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMatchesText(t *testing.T) {
	northgate := Identity{
		Name:    "Northgate",
		Aliases: []string{"north gate", "NG"},
	}

	tests := []struct {
		name    string
		text    string
		lenient bool
		want    bool
	}{
		{"exact name strict", "Northgate", false, true},
		{"name within header strict", "Northgate Country Club", false, true},
		{"case insensitive strict", "NORTHGATE", false, true},
		{"alias strict rejected", "north gate", false, false},
		{"alias lenient accepted", "north gate", true, true},
		{"alias within text lenient", "the north gate course", true, true},
		{"other course strict", "Walden", false, false},
		{"other course lenient", "Walden", true, false},
		{"empty strict", "", false, false},
		{"empty lenient", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := northgate.MatchesText(tt.text, tt.lenient); got != tt.want {
				t.Errorf("MatchesText(%q, lenient=%v) = %v, want %v", tt.text, tt.lenient, got, tt.want)
			}
		})
	}
}

func TestLookups(t *testing.T) {
	courses := []Identity{
		{Name: "Northgate", DropdownValue: "2", SheetIndex: 0},
		{Name: "Walden", Aliases: []string{"Walden on Lake Houston"}, DropdownValue: "1", SheetIndex: 1},
	}

	if c, ok := BySheetIndex(courses, 1); !ok || c.Name != "Walden" {
		t.Errorf("BySheetIndex(1) = %v, %v", c, ok)
	}
	if _, ok := BySheetIndex(courses, 9); ok {
		t.Error("BySheetIndex(9) should not match")
	}
	if c, ok := ByName(courses, "northgate"); !ok || c.SheetIndex != 0 {
		t.Errorf("ByName(northgate) = %v, %v", c, ok)
	}
	if c, ok := ByName(courses, "Walden on Lake Houston"); !ok || c.Name != "Walden" {
		t.Errorf("ByName(alias) = %v, %v", c, ok)
	}
	if _, ok := ByName(courses, "Pebble Beach"); ok {
		t.Error("ByName(Pebble Beach) should not match")
	}
}
