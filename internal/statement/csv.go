package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// naTokens are cell contents read as a missing value.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "#NA": {}, "<NA>": {},
}

// textColumns are never converted to numbers even if every cell looks numeric.
var textColumns = map[string]bool{
	ColNarration:   true,
	ColDescription: true,
	ColCategory:    true,
	ColDate:        true,
}

// amountColumns are always numeric and parsed leniently.
var amountColumns = map[string]bool{
	ColAmount:      true,
	ColDebitAmount: true,
}

// ReadCSV parses a statement export. The first record is the header; its
// names are trimmed and lowercased.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyUpload
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header row: %v", ErrMalformedCSV, err)
	}

	columns := make([]string, len(header))
	named := 0
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		columns[i] = strings.ToLower(strings.TrimSpace(col))
		if columns[i] != "" {
			named++
		}
	}
	if named == 0 {
		return nil, ErrMissingHeader
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		if len(record) > len(columns) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d", ErrMalformedCSV, line, len(columns), len(record))
		}
		records = append(records, record)
	}

	numeric := make([]bool, len(columns))
	for j, name := range columns {
		numeric[j] = isNumericColumn(name, j, records)
	}

	rows := make([]Row, len(records))
	for i, record := range records {
		row := make(Row, len(columns))
		for j := range columns {
			if j >= len(record) {
				row[j] = Null()
				continue
			}
			row[j] = parseCell(record[j], columns[j], numeric[j])
		}
		rows[i] = row
	}

	return NewTable(columns, rows), nil
}

func isNumericColumn(name string, j int, records [][]string) bool {
	if amountColumns[name] {
		return true
	}
	if textColumns[name] {
		return false
	}
	for _, record := range records {
		if j >= len(record) || isNA(record[j]) || strings.TrimSpace(record[j]) == "" {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64); err != nil {
			return false
		}
	}
	return true
}

func parseCell(cell, column string, numeric bool) Value {
	if isNA(cell) {
		return Null()
	}
	if !numeric {
		return Text(cell)
	}
	if strings.TrimSpace(cell) == "" {
		return Null()
	}
	if amountColumns[column] {
		if f, ok := parseAmount(cell); ok {
			return Number(f)
		}
		return Null()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return Null()
	}
	return Number(f)
}

func isNA(cell string) bool {
	_, ok := naTokens[cell]
	return ok
}

// parseAmount strips currency symbols and thousands separators before parsing.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"$", "€", "£", "₹", ",", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
