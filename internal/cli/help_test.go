package cli

import (
	"strings"
	"testing"
)

func TestWrapText(t *testing.T) {
	text := "one two three four five six\n\n- keep this bullet\nseven eight"
	got := wrapText(text, 10)

	paragraphs := strings.Split(got, "\n\n")
	if len(paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %q", len(paragraphs), got)
	}
	for _, line := range strings.Split(paragraphs[0], "\n") {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if !strings.HasPrefix(paragraphs[1], "- keep this bullet\nseven") {
		t.Errorf("bullet should stay on its own line, got %q", paragraphs[1])
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "scrape": false, "probe": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestScrapeArgs(t *testing.T) {
	if err := scrapeCmd.Args(scrapeCmd, []string{"deviations"}); err != nil {
		t.Errorf("deviations should be accepted: %v", err)
	}
	if err := scrapeCmd.Args(scrapeCmd, []string{"buses"}); err == nil {
		t.Error("unknown source should be rejected")
	}
	if err := probeCmd.Args(probeCmd, nil); err != nil {
		t.Errorf("probe without args should be accepted: %v", err)
	}
}
