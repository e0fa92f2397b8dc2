package dataset

import "strconv"

// Canonical column names produced by Normalize.
const (
	ColumnRating      = "aggregate_rating"
	ColumnCost        = "average_cost_for_two"
	ColumnOnlineOrder = "has_online_delivery"
	ColumnListingType = "listed_in_type"
)

// RawTable is a delimited file as read: header cells plus one slice of cells
// per row. Every row has exactly len(Headers) cells; an empty cell is a
// missing value.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t RawTable) Len() int {
	return len(t.Rows)
}

// Record is one clean row. Cells is aligned with CleanTable.Columns; the
// rating and cost positions hold the formatted numeric value.
type Record struct {
	Rating float64
	Cost   float64
	Cells  []string
}

// CleanTable is the output of Normalize. It is never mutated after
// construction, so it can be shared between sessions.
type CleanTable struct {
	Columns []string
	Rows    []Record
	Report  Report

	index map[string]int
}

// Report summarizes what Normalize did to the input. DroppedMarker counts
// placeholder ratings and blank rating cells; DroppedRating counts non-blank
// ratings with no number in them.
type Report struct {
	RowsIn          int      `json:"rows_in"`
	RowsOut         int      `json:"rows_out"`
	DroppedMarker   int      `json:"dropped_marker"`
	DroppedRating   int      `json:"dropped_unparseable_rating"`
	DroppedCost     int      `json:"dropped_unparseable_cost"`
	OptionalMissing []string `json:"optional_missing,omitempty"`
}

// Dropped returns the total number of excluded rows.
func (r Report) Dropped() int {
	return r.DroppedMarker + r.DroppedRating + r.DroppedCost
}

func newCleanTable(columns []string) *CleanTable {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &CleanTable{Columns: columns, index: index}
}

// Len returns the number of clean rows.
func (t *CleanTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of a canonical column.
func (t *CleanTable) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the table carries the named column.
func (t *CleanTable) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the text of a cell, false when the column does not exist or
// the cell is empty.
func (t *CleanTable) Value(row int, column string) (string, bool) {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	v := t.Rows[row].Cells[i]
	return v, v != ""
}

// Strings returns the table as text, header row first.
func (t *CleanTable) Strings() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, r := range t.Rows {
		out = append(out, append([]string(nil), r.Cells...))
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
