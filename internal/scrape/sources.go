package scrape

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/llegapo/scraper/internal/extract"
	"github.com/llegapo/scraper/pkg/models"
)

// Source names
const (
	SourceDeviations  = "deviations"
	SourceMetroStatus = "metro-status"
	SourceTarifas     = "tarifas"
)

// Page paths on the transit authority site
const (
	DeviationsPath  = "/estado-del-servicio/desvios/"
	MetroStatusPath = "/estado-del-servicio/"
	TarifasPath     = "/tarifas-y-recargas/conoce-las-tarifas/"
)

// DeviationsSource scrapes the service deviation notices
func DeviationsSource(ttl time.Duration) Source[[]models.Deviation] {
	return Source[[]models.Deviation]{
		Name:          SourceDeviations,
		Path:          DeviationsPath,
		Marker:        "div.row.noticias, a.noticia",
		MarkerPolicy:  MarkerSoft,
		MarkerTimeout: 10 * time.Second,
		CacheTTL:      ttl,
		Extract:       extract.Deviations,
	}
}

// MetroStatusSource scrapes the metro line status table. maxLines caps the
// number of lines returned; 0 returns every line.
func MetroStatusSource(ttl time.Duration, maxLines int) Source[[]models.MetroLineStatus] {
	return Source[[]models.MetroLineStatus]{
		Name:          SourceMetroStatus,
		Path:          MetroStatusPath,
		Marker:        "table.table, table, tbody tr",
		MarkerPolicy:  MarkerSoft,
		MarkerTimeout: 15 * time.Second,
		Settle:        2 * time.Second,
		CacheTTL:      ttl,
		Extract: func(doc *goquery.Document, _ string) ([]models.MetroLineStatus, extract.Report) {
			return extract.MetroStatus(doc, extract.MetroOptions{MaxLines: maxLines})
		},
	}
}

// TarifasSource scrapes the fare tables
func TarifasSource(ttl time.Duration) Source[models.TarifasData] {
	return Source[models.TarifasData]{
		Name:          SourceTarifas,
		Path:          TarifasPath,
		Marker:        "h2.titular",
		MarkerPolicy:  MarkerSoft,
		MarkerTimeout: 10 * time.Second,
		CacheTTL:      ttl,
		Extract: func(doc *goquery.Document, _ string) (models.TarifasData, extract.Report) {
			tarifas, report := extract.Tarifas(doc)
			return models.TarifasData{
				Tarifas:            tarifas,
				InformacionGeneral: models.DefaultInformacionGeneral(),
			}, report
		},
	}
}
