// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wos reads Web of Science exports (tab-delimited, CSV or Excel)
// into screening records.
package wos

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/litharvest/pkg/types"
)

// tagHeaders maps Web of Science two-letter field tags onto the full
// column names used by the record type.
var tagHeaders = map[string]string{
	"PT": "Publication Type",
	"DT": "Document Type",
	"AU": "Authors",
	"TI": "Article Title",
	"SO": "Source Title",
	"CT": "Conference Title",
	"DI": "DOI",
	"PY": "Publication Year",
	"PD": "Publication Date",
	"AB": "Abstract",
}

// Stats reports how many rows were read and how many were kept.
type Stats struct {
	Total    int
	Complete int
}

// Dropped returns the number of rows missing a title, DOI or abstract.
func (s Stats) Dropped() int { return s.Total - s.Complete }

// ReadFile reads the export at path. Files ending in .xlsx or .xls are read
// from their first sheet, .csv files are comma-separated, and anything else
// is taken as tab-delimited.
func ReadFile(path string) ([]types.Record, Stats, error) {
	var (
		recs  []types.Record
		stats Stats
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		recs, stats, err = readXLSX(path)
	case ".xls":
		recs, stats, err = readXLS(path)
	default:
		recs, stats, err = readDelimited(path)
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("reading export %s: %w", path, err)
	}
	return recs, stats, nil
}

func readDelimited(path string) ([]types.Record, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()

	comma := '\t'
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		comma = ','
	}
	return Read(f, comma)
}

func readXLSX(path string) ([]types.Record, Stats, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, Stats{}, err
	}
	return ReadRows(rows)
}

func readXLS(path string) ([]types.Record, Stats, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, Stats{}, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, Stats{}, fmt.Errorf("workbook has no sheets")
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return ReadRows(rows)
}

// Read parses an export with the given delimiter and keeps only rows that
// have a title, a DOI and an abstract.
func Read(r io.Reader, comma rune) ([]types.Record, Stats, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return decode(&headerAliasReader{r: cr})
}

// ReadRows is Read for rows already split into cells, such as a
// spreadsheet sheet. The first row is the header. Short rows are padded.
func ReadRows(rows [][]string) ([]types.Record, Stats, error) {
	if len(rows) == 0 {
		return nil, Stats{}, nil
	}
	width := len(rows[0])
	padded := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) < width {
			row = append(append([]string(nil), row...), make([]string, width-len(row))...)
		}
		padded[i] = row
	}
	return decode(&headerAliasReader{r: &sliceRows{rows: padded}})
}

func decode(r *headerAliasReader) ([]types.Record, Stats, error) {
	var all []types.Record
	if err := gocsv.UnmarshalCSV(r, &all); err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Total: len(all)}
	kept := all[:0]
	for _, rec := range all {
		if complete(rec) {
			kept = append(kept, rec)
		}
	}
	stats.Complete = len(kept)
	return kept, stats, nil
}

func complete(r types.Record) bool {
	return strings.TrimSpace(r.Title) != "" &&
		strings.TrimSpace(r.DOI) != "" &&
		strings.TrimSpace(r.Abstract) != ""
}

// headerAliasReader rewrites the header row so tag and full-name headers
// both bind to the record fields.
type headerAliasReader struct {
	r    rowReader
	seen bool
}

type rowReader interface {
	Read() ([]string, error)
}

// sliceRows serves rows that are already in memory.
type sliceRows struct {
	rows [][]string
	next int
}

func (s *sliceRows) Read() ([]string, error) {
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.next]
	s.next++
	return row, nil
}

func (h *headerAliasReader) Read() ([]string, error) {
	row, err := h.r.Read()
	if err != nil || h.seen {
		return row, err
	}
	h.seen = true
	return normalizeHeader(row), nil
}

func (h *headerAliasReader) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		row, err := h.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

func normalizeHeader(row []string) []string {
	out := make([]string, len(row))
	for i, name := range row {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		name = strings.TrimSpace(name)
		if full, ok := tagHeaders[strings.ToUpper(name)]; ok {
			name = full
		}
		out[i] = name
	}
	return out
}
