package model

import "testing"

func TestValidStatus(t *testing.T) {
	if !ValidStatus(ItemStatusAvailable) {
		t.Error("expected 'available' to be valid")
	}
	if !ValidStatus(ItemStatusClaimed) {
		t.Error("expected 'claimed' to be valid")
	}
	if ValidStatus("active") {
		t.Error("expected 'active' to be invalid")
	}
	if ValidStatus("") {
		t.Error("expected empty status to be invalid")
	}
}

func TestValidDate(t *testing.T) {
	valid := []string{"2026-01-01", "2026-08-25", "1999-12-31"}
	for _, d := range valid {
		if !ValidDate(d) {
			t.Errorf("expected %q to be valid", d)
		}
	}

	invalid := []string{"", "2026-1-1", "25-08-2026", "2026/08/25", "2026-13-01", "not a date"}
	for _, d := range invalid {
		if ValidDate(d) {
			t.Errorf("expected %q to be invalid", d)
		}
	}
}

func TestTodayFormat(t *testing.T) {
	if !ValidDate(Today()) {
		t.Errorf("Today returned malformed date: %q", Today())
	}
}
