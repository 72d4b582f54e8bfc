package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/llegapo/scraper/internal/browser"
)

// ExtractionError reports a failure after the page was loaded: snapshot,
// parsing, or a panic inside the pipeline.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Error kinds used as metric labels and in logs
const (
	KindLaunch     = "launch"
	KindNavigation = "navigation"
	KindMarker     = "marker"
	KindExtraction = "extraction"
	KindCanceled   = "canceled"
	KindTimeout    = "timeout"
	KindUnknown    = "unknown"
)

// Kind classifies a pipeline error
func Kind(err error) string {
	var (
		launchErr  *browser.LaunchError
		navErr     *browser.NavigationError
		markerErr  *browser.MarkerTimeoutError
		extractErr *ExtractionError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &launchErr):
		return KindLaunch
	case errors.As(err, &navErr):
		return KindNavigation
	case errors.As(err, &markerErr):
		return KindMarker
	case errors.As(err, &extractErr):
		return KindExtraction
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	return KindUnknown
}
