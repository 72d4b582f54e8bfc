package ui

import "testing"

func TestStyle(t *testing.T) {
	Enabled = true
	if got := Success("ok"); got != ColorGreen+"ok"+ColorReset {
		t.Errorf("Success = %q", got)
	}
	if got := Heading("X"); got != ColorBold+ColorCyan+"X"+ColorReset {
		t.Errorf("Heading = %q", got)
	}

	Enabled = false
	defer func() { Enabled = true }()
	if got := Error("fail"); got != "fail" {
		t.Errorf("disabled styling should return plain text, got %q", got)
	}
}
