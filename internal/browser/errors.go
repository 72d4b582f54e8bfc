package browser

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrBrowserNotFound = errors.New("chrome browser not found")
	ErrSessionClosed   = errors.New("browser session closed")
)

// LaunchError is returned when the browser binary cannot be resolved or started
type LaunchError struct {
	Strategy string
	Err      error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch browser (%s): %v", e.Strategy, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// NavigationError is returned when every navigation attempt failed
type NavigationError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// MarkerTimeoutError is returned when a marker selector never appeared
type MarkerTimeoutError struct {
	Selector string
	Timeout  time.Duration
	Err      error
}

func (e *MarkerTimeoutError) Error() string {
	return fmt.Sprintf("selector %q not found within %s: %v", e.Selector, e.Timeout, e.Err)
}

func (e *MarkerTimeoutError) Unwrap() error {
	return e.Err
}

// CleanupError wraps a teardown failure. It is logged and counted, never returned to callers.
type CleanupError struct {
	Err error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("browser cleanup: %v", e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}
