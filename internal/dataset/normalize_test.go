package dataset

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Online_Order", "online_order"},
		{" Approx Cost(for two people)", "approx_costfor_two_people"},
		{"listed_in(type)", "listed_intype"},
		{"  Rate ", "rate"},
		{"Book Table", "book_table"},
		{"menu-item", "menuitem"},
		{"Café", "caf"},
		{"aggregate_rating", "aggregate_rating"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalName(tt.in))
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"4.1/5", 4.1, true},
		{"3.8 /5", 3.8, true},
		{" 4 /5", 4, true},
		{"4.", 4, true},
		{"4.5", 4.5, true},
		{"rated 3.2", 3.2, true},
		{"", 0, false},
		{"NEW", 0, false},
		{"-/5", 5, true},
		{"/5", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRating(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseCost(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1,200", 1200, true},
		{"800", 800, true},
		{" 1,000,000 ", 1000000, true},
		{"450.5", 450.5, true},
		{"", 0, false},
		{"free", 0, false},
		{"nan", 0, false},
		{"Inf", 0, false},
		{"0x1p3", 0, false},
		{"0X1P10", 0, false},
		{"1_000", 0, false},
		{"1e999", 0, false},
		{".5", 0.5, true},
		{"1.5e3", 1500, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCost(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func zomatoRaw(rows ...[]string) RawTable {
	return RawTable{
		Headers: []string{"Name", "Online_Order", "Rate", " Approx Cost(for two people)", "listed_in(type)"},
		Rows:    rows,
	}
}

func ratings(t *CleanTable) []float64 {
	out := make([]float64, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, r.Rating)
	}
	return out
}

func TestNormalize_FiveRowScenario(t *testing.T) {
	raw := zomatoRaw(
		[]string{"Jalsa", "Yes", "4.1/5", "800", "Buffet"},
		[]string{"Spice Elephant", "Yes", "NEW", "800", "Buffet"},
		[]string{"San Churro Cafe", "Yes", "-", "800", "Cafes"},
		[]string{"Addhuri Udupi", "No", "3.8/5", "300", "Delivery"},
		[]string{"Grand Village", "No", "nan", "600", "Dine-out"},
	)

	table, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", ColumnOnlineOrder, ColumnRating, ColumnCost, ColumnListingType}, table.Columns)
	assert.Equal(t, []float64{4.1, 3.8}, ratings(table))
	assert.Equal(t, 5, table.Report.RowsIn)
	assert.Equal(t, 2, table.Report.RowsOut)
	assert.Equal(t, 3, table.Report.DroppedMarker)
	assert.Equal(t, 3, table.Report.Dropped())

	v, ok := table.Value(0, ColumnRating)
	assert.True(t, ok)
	assert.Equal(t, "4.1", v)
}

func TestNormalize_CostSeparators(t *testing.T) {
	table, err := Normalize(zomatoRaw(
		[]string{"A", "Yes", "4.0/5", "1,200", "Buffet"},
	))
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 1200.0, table.Rows[0].Cost)

	v, _ := table.Value(0, ColumnCost)
	assert.Equal(t, "1200", v)
}

func TestNormalize_MarkerWithValidCostIsDropped(t *testing.T) {
	table, err := Normalize(zomatoRaw(
		[]string{"A", "Yes", "NEW", "1,200", "Buffet"},
		[]string{"B", "Yes", " - ", "500", "Buffet"},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 2, table.Report.DroppedMarker)
}

func TestNormalize_MarkersAreCaseSensitive(t *testing.T) {
	table, err := Normalize(zomatoRaw(
		[]string{"A", "Yes", "new", "500", "Buffet"},
		[]string{"B", "Yes", "NaN", "500", "Buffet"},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Report.DroppedMarker)
	assert.Equal(t, 2, table.Report.DroppedRating)
}

func TestNormalize_BlankRatingCountsAsMarker(t *testing.T) {
	table, err := Normalize(zomatoRaw(
		[]string{"A", "Yes", "", "800", "Buffet"},
		[]string{"B", "Yes", "nan", "800", "Buffet"},
		[]string{"C", "Yes", "  ", "800", "Buffet"},
		[]string{"D", "Yes"},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 4, table.Report.DroppedMarker)
	assert.Equal(t, 0, table.Report.DroppedRating)
}

func TestNormalize_Completeness(t *testing.T) {
	table, err := Normalize(zomatoRaw(
		[]string{"A", "Yes", "4.1/5", "", "Buffet"},
		[]string{"B", "Yes", "", "400", "Buffet"},
		[]string{"C", "Yes", "not rated", "400", "Buffet"},
		[]string{"D", "Yes", "3.1/5", "cheap", "Buffet"},
		[]string{"E", "No", "2.9/5", "250", ""},
	))
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, 2.9, table.Rows[0].Rating)
	assert.Equal(t, 250.0, table.Rows[0].Cost)
	assert.Equal(t, 1, table.Report.DroppedMarker, "blank rating counts as missing")
	assert.Equal(t, 1, table.Report.DroppedRating)
	assert.Equal(t, 2, table.Report.DroppedCost)

	for _, r := range table.Rows {
		assert.NotEmpty(t, r.Cells[2])
		assert.NotEmpty(t, r.Cells[3])
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize(zomatoRaw(
		[]string{"Jalsa", "Yes", "4.1/5", "1,200", "Buffet"},
		[]string{"Addhuri Udupi", "No", "3.8/5", "300", "Delivery"},
	))
	require.NoError(t, err)

	rows := first.Strings()
	second, err := Normalize(RawTable{Headers: rows[0], Rows: rows[1:]})
	require.NoError(t, err)

	if diff := cmp.Diff(first.Columns, second.Columns); diff != "" {
		t.Errorf("columns changed (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Rows, second.Rows); diff != "" {
		t.Errorf("rows changed (-first +second):\n%s", diff)
	}
	assert.Equal(t, 0, second.Report.Dropped())
}

func TestNormalize_MissingColumn(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    []string
	}{
		{
			name:    "no rating",
			headers: []string{"name", "approx_cost(for two people)"},
			want:    []string{ColumnRating},
		},
		{
			name:    "no cost",
			headers: []string{"name", "rate"},
			want:    []string{ColumnCost},
		},
		{
			name:    "neither",
			headers: []string{"name"},
			want:    []string{ColumnRating, ColumnCost},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(RawTable{Headers: tt.headers})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingColumn))

			var missing *MissingColumnError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.want, missing.Columns)
			assert.Contains(t, err.Error(), tt.want[0])
		})
	}
}

func TestNormalize_HeaderCollision(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		column  string
	}{
		{
			name:    "two headers canonicalize alike",
			headers: []string{"Rate", "rate ", "approx_cost(for two people)"},
			column:  "rate",
		},
		{
			name:    "source and target name both present",
			headers: []string{"rate", "aggregate_rating", "approx_cost(for two people)"},
			column:  ColumnRating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(RawTable{Headers: tt.headers})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrHeaderCollision)

			var collision *HeaderCollisionError
			require.ErrorAs(t, err, &collision)
			assert.Equal(t, tt.column, collision.Column)
			assert.Len(t, collision.Headers, 2)
		})
	}
}

func TestNormalize_EmptyTable(t *testing.T) {
	table, err := Normalize(zomatoRaw())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Len(t, table.Columns, 5)
}

func TestNormalize_OptionalColumnsReported(t *testing.T) {
	table, err := Normalize(RawTable{
		Headers: []string{"rate", "approx_cost(for two people)"},
		Rows:    [][]string{{"4.0/5", "300"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{ColumnOnlineOrder, ColumnListingType}, table.Report.OptionalMissing)
	assert.False(t, table.HasColumn(ColumnOnlineOrder))
}

func TestNormalize_UnnamedColumns(t *testing.T) {
	table, err := Normalize(RawTable{
		Headers: []string{"", "rate", "approx_cost(for two people)"},
		Rows:    [][]string{{"0", "4.0/5", "300"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "unnamed_0", table.Columns[0])
}

func TestNormalize_ShortRowsAreTolerated(t *testing.T) {
	table, err := Normalize(RawTable{
		Headers: []string{"rate", "approx_cost(for two people)", "listed_in(type)"},
		Rows:    [][]string{{"4.0/5", "300"}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	want := Record{Rating: 4, Cost: 300, Cells: []string{"4", "300", ""}}
	if diff := cmp.Diff(want, table.Rows[0], cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}
