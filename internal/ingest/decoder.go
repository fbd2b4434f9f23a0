// Package ingest decodes register exports from PLC programming tools into
// the raw record grid the mapping builder consumes.
package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	mapping "opcmap/internal/mapping/domain"
)

// Grid column layout of a register export. Column 0 carries the symbol name
// the core does not use.
const (
	colDeclaredType = 1
	colAddress      = 2
	colDescription  = 3
	colValue        = 4
	minColumns      = 4
)

// DecodeCSV reads a register export CSV into a raw string grid. Field
// counts vary between tools, so per-row column checks happen later in
// GridRecords.
func DecodeCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// DecodeXLSX reads the first sheet of a register export workbook into a raw
// string grid.
func DecodeXLSX(r io.Reader) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("ingest: workbook has no sheets")
	}
	return file.GetRows(sheets[0])
}

// GridRecords converts a raw grid into records. Rows with fewer than four
// cells are not records at all: they are dropped silently and never
// counted. When skipHeader is set the first row is treated as a header.
func GridRecords(grid [][]string, skipHeader bool) []mapping.RawRecord {
	records := make([]mapping.RawRecord, 0, len(grid))
	for i, row := range grid {
		if skipHeader && i == 0 {
			continue
		}
		if len(row) < minColumns {
			continue
		}
		record := mapping.RawRecord{
			DeclaredType: strings.TrimSpace(row[colDeclaredType]),
			Address:      strings.TrimSpace(row[colAddress]),
			Description:  strings.TrimSpace(row[colDescription]),
		}
		if len(row) > colValue {
			record.Value = strings.TrimSpace(row[colValue])
		}
		records = append(records, record)
	}
	return records
}
