package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// Parse turns raw comma-separated text into a Dataset. The first line is the
// header. Commas inside quoted fields are not handled; use ParseQuoted for
// that. Kind, Source and LoadedAt are left for the caller to fill in.
func Parse(text string) *types.Dataset {
	lines := strings.Split(text, "\n")
	records := make([][]string, len(lines))
	for i, line := range lines {
		records[i] = strings.Split(line, ",")
	}
	return build(records)
}

// ParseQuoted reads RFC 4180 text, so quoted fields may contain commas,
// quotes and newlines. Blank lines are skipped by the reader.
func ParseQuoted(text string) (*types.Dataset, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read quoted csv: %w", err)
		}
		records = append(records, rec)
	}
	return build(records), nil
}

// ParseXLSX reads one worksheet of an .xlsx workbook. An empty sheet name
// selects the first sheet. Cell values are read raw, so dates formatted in
// the workbook arrive as serial numbers.
func ParseXLSX(data []byte, sheet string) (*types.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ingest: open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("ingest: xlsx has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
	}
	return build(rows), nil
}

// build applies the header/zip/drop rules shared by every format.
func build(records [][]string) *types.Dataset {
	ds := &types.Dataset{Rows: []types.Row{}}
	if len(records) == 0 {
		return ds
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = trim(h)
	}
	ds.Headers = headers
	if len(headers) == 0 {
		return ds
	}

	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		ds.Stats.Lines++
		switch {
		case len(rec) < len(headers):
			ds.Stats.ShortLines++
		case len(rec) > len(headers):
			ds.Stats.LongLines++
		}

		row := make(types.Row, len(headers))
		for i, h := range headers {
			var v string
			if i < len(rec) {
				v = trim(rec[i])
			}
			// Duplicate headers: the last occurrence wins.
			row[h] = v
		}
		if row[headers[0]] == "" {
			ds.Stats.DroppedEmpty++
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}
	ds.Stats.Kept = len(ds.Rows)
	return ds
}

// trim strips whitespace, including \r left by CRLF files and a UTF-8 BOM.
func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// blank reports whether a record carries no characters other than
// whitespace, e.g. the empty line after a trailing newline.
func blank(rec []string) bool {
	for _, v := range rec {
		if trim(v) != "" {
			return false
		}
	}
	return true
}
