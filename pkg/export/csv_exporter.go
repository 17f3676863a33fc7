package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Section is a titled group of rows sharing the dataset headers.
type Section struct {
	Title string
	Rows  []map[string]string
}

// Dataset defines sectioned tabular export content.
type Dataset struct {
	Title    string
	Headers  []string
	Sections []Section
}

// CSVExporter renders Dataset records into CSV bytes. Each section is written
// as a title line, the header row and its rows, separated by a blank line.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, section := range data.Sections {
		if i > 0 {
			writer.Flush()
			buf.WriteByte('\n')
		}
		if section.Title != "" {
			if err := writer.Write([]string{section.Title}); err != nil {
				return nil, fmt.Errorf("write csv section title: %w", err)
			}
		}
		if err := writer.Write(data.Headers); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for _, row := range section.Rows {
			record := make([]string, len(data.Headers))
			for j, header := range data.Headers {
				record[j] = row[header]
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
