package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/llegapo/scraper/pkg/models"
)

// Table is a header plus rows ready for CSV export
type Table struct {
	Header []string
	Rows   [][]string
}

// DeviationsTable flattens deviation notices
func DeviationsTable(items []models.Deviation) Table {
	t := Table{Header: []string{"date", "title", "excerpt", "link"}}
	for _, d := range items {
		t.Rows = append(t.Rows, []string{d.Date, d.Title, d.Excerpt, d.Link})
	}
	return t
}

// MetroStatusTable flattens metro line statuses
func MetroStatusTable(items []models.MetroLineStatus) Table {
	t := Table{Header: []string{"line", "status", "details"}}
	for _, s := range items {
		t.Rows = append(t.Rows, []string{s.Line, s.Status, s.Details})
	}
	return t
}

// TarifasTable writes one row per fare combination
func TarifasTable(data models.TarifasData) Table {
	t := Table{Header: []string{"tipo", "nombre", "horario", "combinacion", "precio"}}
	for _, tarifa := range data.Tarifas {
		for _, c := range tarifa.Combinaciones {
			t.Rows = append(t.Rows, []string{
				string(tarifa.Tipo),
				tarifa.Nombre,
				tarifa.Horarios.Texto,
				c.Descripcion,
				strconv.Itoa(c.Precio),
			})
		}
	}
	return t
}

// TableOf returns the CSV table for a scrape payload
func TableOf(data interface{}) (Table, error) {
	switch v := data.(type) {
	case []models.Deviation:
		return DeviationsTable(v), nil
	case []models.MetroLineStatus:
		return MetroStatusTable(v), nil
	case models.TarifasData:
		return TarifasTable(v), nil
	}
	return Table{}, fmt.Errorf("no CSV layout for %T", data)
}

// WriteCSV writes the table to w
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// SaveCSV writes the table to a CSV file. Returns an error on failure.
func SaveCSV(t Table, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	if err := WriteCSV(file, t); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
