package acquire

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVExtractor handles spreadsheet exports. Each record becomes one line with
// its non-empty cells separated by spaces, so "Hemoglobin,11.2,g/dL" reads like
// a printed report row.
type CSVExtractor struct{}

func (e *CSVExtractor) Extract(_ context.Context, r io.Reader, _ string) (string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}

	lines := make([]string, 0, len(records))
	for _, rec := range records {
		cells := make([]string, 0, len(rec))
		for _, cell := range rec {
			if cell = strings.TrimSpace(cell); cell != "" {
				cells = append(cells, cell)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " "))
		}
	}
	return strings.Join(lines, "\n"), nil
}
