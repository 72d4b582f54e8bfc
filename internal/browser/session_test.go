package browser

import (
	"errors"
	"sync"
	"testing"

	"github.com/llegapo/scraper/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionCleanup_RunsOnce(t *testing.T) {
	calls := 0
	s := NewSession(nil, "local", func() error {
		calls++
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Cleanup()
		}()
	}
	wg.Wait()
	s.Cleanup()

	if calls != 1 {
		t.Errorf("Expected teardown to run once, got %d", calls)
	}
}

func TestSessionCleanup_SwallowsErrorsAndPanics(t *testing.T) {
	before := testutil.ToFloat64(metrics.CleanupErrors)

	NewSession(nil, "local", func() error { return errors.New("browser already gone") }).Cleanup()
	NewSession(nil, "local", func() error { panic("teardown exploded") }).Cleanup()

	if got := testutil.ToFloat64(metrics.CleanupErrors) - before; got != 2 {
		t.Errorf("Expected 2 counted cleanup errors, got %v", got)
	}
}

func TestSessionCleanup_NilSafe(t *testing.T) {
	var s *Session
	s.Cleanup()

	NewSession(nil, "local", nil).Cleanup()
}
