package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
)

const utf8BOM = "\ufeff"

// DecodeCSV reads a header row followed by data rows. Ragged rows are padded
// with "" or truncated to the header width. Empty input yields no rows.
func DecodeCSV(r io.Reader) ([]models.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var values [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %v", domrepo.ErrMalformedRecord, err)
		}
		values = append(values, rec)
	}
	return RowsFromValues(values), nil
}

// RowsFromValues maps a header + rows grid onto field-named records, the way
// spreadsheet "all records" reads do. Columns with a blank header are dropped
// and fully blank rows are ignored.
func RowsFromValues(values [][]string) []models.RawRow {
	if len(values) == 0 {
		return []models.RawRow{}
	}

	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]models.RawRow, 0, len(values)-1)
	for _, rec := range values[1:] {
		if blank(rec) {
			continue
		}
		row := make(models.RawRow, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
