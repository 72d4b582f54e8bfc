package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/llegapo/scraper/pkg/models"
	"golang.org/x/net/html"
)

// TarifaHeaderSelector marks the start of each fare section
const TarifaHeaderSelector = "h2.titular"

var (
	pricePattern   = regexp.MustCompile(`\$?\s*(\d+(?:\.\d{3})*)`)
	rangePattern   = regexp.MustCompile(`(\d{2}):(\d{2})\s*[-–]\s*(\d{2}):(\d{2})`)
	metroPrice     = regexp.MustCompile(`(?i)Metro.*?\$\s*(\d+(?:\.\d{3})*)`)
	busPrice       = regexp.MustCompile(`(?i)bus.*?\$\s*(\d+(?:\.\d{3})*)`)
	metrotrenPrice = regexp.MustCompile(`(?i)Tren.*?\$\s*(\d+(?:\.\d{3})*)`)
)

var restrictionKeywords = []string{"restricci", "no aplica", "no válid", "no valid", "excepto"}

// ClassifyTarifa maps a section header to a fare type. The checks are ordered
// and case-sensitive.
func ClassifyTarifa(header string) (models.TarifaTipo, bool) {
	switch {
	case strings.Contains(header, "Baja"):
		return models.TarifaBaja, true
	case strings.Contains(header, "Valle"):
		return models.TarifaValle, true
	case strings.Contains(header, "Punta"):
		return models.TarifaPunta, true
	case strings.Contains(header, "Estudiantes"):
		return models.TarifaEstudiante, true
	case strings.Contains(header, "Adulto Mayor") && strings.Contains(header, "Metro"):
		return models.TarifaAdultoMayorMetro, true
	case strings.Contains(header, "Adulto Mayor"):
		return models.TarifaAdultoMayor, true
	}
	return "", false
}

// Tarifas extracts one fare record per classified section that holds a fare
// table. Report.Found counts classified sections and Report.Dropped the table
// rows discarded for a missing label or price.
func Tarifas(doc *goquery.Document) ([]models.Tarifa, Report) {
	tarifas := []models.Tarifa{}
	var report Report

	for _, section := range Sections(doc, TarifaHeaderSelector) {
		nombre := section.Title()
		tipo, ok := ClassifyTarifa(nombre)
		if !ok {
			continue
		}
		report.Found++

		tarifa, dropped, ok := tarifaFromSection(doc, section, tipo, nombre)
		report.Dropped += dropped
		if !ok {
			continue
		}

		tarifas = append(tarifas, tarifa)
		report.Processed++
	}

	return tarifas, report
}

func tarifaFromSection(doc *goquery.Document, section Section, tipo models.TarifaTipo, nombre string) (models.Tarifa, int, bool) {
	var table *html.Node
	var texts []string

	for _, n := range section.Body {
		if t := tableOf(n); t != nil {
			table = t
			break
		}
		if isTextBlock(n) {
			if text := cleanText(nodeText(n)); text != "" {
				texts = append(texts, text)
			}
		}
	}

	if table == nil {
		return models.Tarifa{}, 0, false
	}

	tarifa := models.Tarifa{
		Tipo:          tipo,
		Nombre:        nombre,
		Horarios:      models.Horarios{Rangos: []models.Rango{}},
		Combinaciones: []models.Combinacion{},
	}

	for _, text := range texts {
		switch {
		case strings.Contains(text, "Combinación") || strings.Contains(text, "Precio"):
			continue
		case strings.Contains(text, "Iniciando") || strings.Contains(text, "Horario"):
			// last schedule paragraph wins
			tarifa.Horarios.Texto = text
		case hasRestriction(text):
			if tarifa.Restricciones == "" {
				tarifa.Restricciones = text
			}
		case tarifa.Descripcion == "":
			tarifa.Descripcion = text
		}
	}
	if tarifa.Descripcion == "" {
		tarifa.Descripcion = nombre
	}

	tarifa.Horarios.Rangos = ParseRangos(tarifa.Horarios.Texto)

	dropped := 0
	doc.FindNodes(table).Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		label := cleanText(cells.Eq(0).Text())
		precio := ParsePrice(cells.Eq(1).Text())
		if label == "" || precio <= 0 {
			dropped++
			return
		}

		tarifa.Combinaciones = append(tarifa.Combinaciones, models.Combinacion{
			Descripcion: label,
			Precio:      precio,
		})
		if precio > tarifa.Precios.Total {
			tarifa.Precios.Total = precio
		}
	})

	tarifa.Precios.Metro = priceAfter(metroPrice, tarifa.Descripcion)
	tarifa.Precios.Bus = priceAfter(busPrice, tarifa.Descripcion)
	tarifa.Precios.Metrotren = priceAfter(metrotrenPrice, tarifa.Descripcion)

	return tarifa, dropped, true
}

// ParsePrice returns the first currency-prefixed integer of s, or 0 when s
// holds no number. "$ 1490" and "$1.490" both yield 1490.
func ParsePrice(s string) int {
	m := pricePattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	return parseAmount(m[1])
}

// ParseRangos returns every HH:MM-HH:MM range found in text
func ParseRangos(text string) []models.Rango {
	rangos := []models.Rango{}
	for _, m := range rangePattern.FindAllStringSubmatch(text, -1) {
		rangos = append(rangos, models.Rango{
			Inicio: m[1] + ":" + m[2],
			Fin:    m[3] + ":" + m[4],
		})
	}
	return rangos
}

func priceAfter(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := parseAmount(m[1])
	return &v
}

func hasRestriction(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range restrictionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
