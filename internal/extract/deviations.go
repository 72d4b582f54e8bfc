package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/llegapo/scraper/internal/utils/url"
	"github.com/llegapo/scraper/pkg/models"
)

// Selectors of the deviations page
const (
	DeviationContainerSelector = "div.row.noticias"
	DeviationAnchorSelector    = "a.noticia"
)

var deviationTitlePrefix = regexp.MustCompile(`(?i)^\s*Leer artículo:\s*`)

// Deviations extracts the deviation notices of the deviations page.
//
// Anchors are searched inside the news container; when the container is
// missing the whole document is searched instead. Relative links are resolved
// against baseURL (DefaultBaseURL when empty).
func Deviations(doc *goquery.Document, baseURL string) ([]models.Deviation, Report) {
	deviations := []models.Deviation{}
	var report Report

	if doc == nil {
		return deviations, report
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var anchors *goquery.Selection
	if container := doc.Find(DeviationContainerSelector).First(); container.Length() > 0 {
		anchors = container.Find(DeviationAnchorSelector)
	} else {
		anchors = doc.Find(DeviationAnchorSelector)
	}

	anchors.Each(func(_ int, a *goquery.Selection) {
		report.Found++

		d, ok := deviationFromAnchor(a, baseURL)
		if !ok {
			report.Dropped++
			return
		}

		deviations = append(deviations, d)
		report.Processed++
	})

	return deviations, report
}

func deviationFromAnchor(a *goquery.Selection, baseURL string) (models.Deviation, bool) {
	rawTitle := strings.TrimSpace(a.AttrOr("title", ""))
	href := strings.TrimSpace(a.AttrOr("href", ""))
	date := cleanText(a.Find("span").First().Text())

	if rawTitle == "" || href == "" || date == "" {
		return models.Deviation{}, false
	}

	title := cleanText(deviationTitlePrefix.ReplaceAllString(rawTitle, ""))
	if title == "" {
		return models.Deviation{}, false
	}

	summary := cleanText(a.Find("p").First().Text())
	if summary == "" {
		summary = title
	}

	return models.Deviation{
		Date:    date,
		Title:   title,
		Excerpt: excerpt(summary, ExcerptLength),
		Link:    urlutil.ResolveURL(baseURL, href),
	}, true
}
