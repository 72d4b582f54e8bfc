package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/llegapo/scraper/pkg/models"
)

// Selectors of the service status page
const (
	MetroRowSelector      = "table.table tbody tr"
	MetroLineSelector     = "div.linea-metro[title]"
	MetroFallbackSelector = `div[class*="linea"]`
)

var (
	metroLinePattern = regexp.MustCompile(`(?i)^(L?\d+[a-z]?|L[ií]nea\s*\d+[a-z]?)$`)
	metroLinePrefix  = regexp.MustCompile(`(?i)^(L[ií]nea\s*|L)`)
)

// MetroOptions tunes MetroStatus
type MetroOptions struct {
	// MaxLines caps the number of records; 0 means unlimited.
	MaxLines int
}

// MetroStatus extracts one record per metro line from the service status table,
// in document order. Rows whose identifier is not a metro line are ignored.
func MetroStatus(doc *goquery.Document, opts MetroOptions) ([]models.MetroLineStatus, Report) {
	lines := []models.MetroLineStatus{}
	var report Report

	if doc == nil {
		return lines, report
	}

	doc.Find(MetroRowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}

		id, ok := NormalizeLineID(lineLabel(cells.Eq(0)))
		if !ok {
			return true
		}

		report.Found++
		status := cleanText(cells.Eq(1).Text())
		if status == "" {
			report.Dropped++
			return true
		}

		details := ""
		if cells.Length() > 2 {
			details = cleanText(cells.Eq(2).Text())
		}

		lines = append(lines, models.MetroLineStatus{
			Line:    id,
			Status:  status,
			Details: details,
		})
		report.Processed++

		return opts.MaxLines <= 0 || len(lines) < opts.MaxLines
	})

	return lines, report
}

// lineLabel reads the line identifier from the first cell of a row
func lineLabel(cell *goquery.Selection) string {
	if title, ok := cell.Find(MetroLineSelector).First().Attr("title"); ok && strings.TrimSpace(title) != "" {
		return cleanText(title)
	}

	if fallback := cell.Find(MetroFallbackSelector).First(); fallback.Length() > 0 {
		if title := cleanText(fallback.AttrOr("title", "")); title != "" {
			return title
		}
		if text := cleanText(fallback.Text()); text != "" {
			return text
		}
	}

	return cleanText(cell.Text())
}

// NormalizeLineID validates a metro line label and returns its short lowercase
// form: "L1" -> "1", "Línea 4A" -> "4a". Labels that are not metro lines
// return ok == false.
func NormalizeLineID(label string) (string, bool) {
	label = cleanText(label)
	if !metroLinePattern.MatchString(label) {
		return "", false
	}
	id := strings.TrimSpace(metroLinePrefix.ReplaceAllString(label, ""))
	if id == "" {
		return "", false
	}
	return strings.ToLower(id), true
}
