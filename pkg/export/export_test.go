package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset() Dataset {
	return Dataset{
		Title:   "Spring 2025",
		Headers: []string{"Name", "Email"},
		Sections: []Section{
			{Title: "Year 7", Rows: []map[string]string{
				{"Name": "Amy Adams", "Email": "amy@example.com"},
				{"Name": "Ben, Jr", "Email": "ben@example.com"},
			}},
			{Title: "Year 8"},
		},
	}
}

func TestCSVExporterWritesSections(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset())
	require.NoError(t, err)

	expected := "Year 7\nName,Email\nAmy Adams,amy@example.com\n\"Ben, Jr\",ben@example.com\n\nYear 8\nName,Email\n"
	assert.Equal(t, expected, string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(rosterDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
