package dataset

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

// IsWorkbook reports whether content looks like an XLSX workbook.
func IsWorkbook(content []byte) bool {
	return bytes.HasPrefix(content, zipMagic)
}

// ReadXLSX reads the first sheet of a workbook. Like ReadCSV, the first row
// is the header and every other row is aligned to it.
func ReadXLSX(content []byte) (RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return RawTable{}, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return RawTable{}, ErrEmptyInput
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return RawTable{}, fmt.Errorf("%w: sheet %q: %w", ErrMalformedInput, sheets[0], err)
	}
	if len(rows) == 0 {
		return RawTable{}, ErrEmptyInput
	}

	table := RawTable{Headers: rows[0]}
	for _, row := range rows[1:] {
		table.Rows = append(table.Rows, alignRow(row, len(table.Headers)))
	}
	return table, nil
}

// ReadUpload reads an uploaded file, choosing the workbook or delimited reader
// from the content itself.
func ReadUpload(content []byte, opts ReadOptions) (RawTable, error) {
	if IsWorkbook(content) {
		return ReadXLSX(content)
	}
	return ReadCSVBytes(content, opts)
}
