package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	content := workbookBytes(t,
		[]interface{}{"name", "rate", "approx_cost(for two people)", "listed_in(type)"},
		[]interface{}{"Jalsa", "4.1/5", "800", "Buffet"},
		[]interface{}{"Addhuri Udupi", "3.7/5", "300"},
	)
	require.True(t, IsWorkbook(content))

	raw, err := ReadXLSX(content)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "rate", "approx_cost(for two people)", "listed_in(type)"}, raw.Headers)
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, []string{"Addhuri Udupi", "3.7/5", "300", ""}, raw.Rows[1])

	table, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 800.0, table.Rows[0].Cost)
}

func TestReadXLSX_Empty(t *testing.T) {
	_, err := ReadXLSX(workbookBytes(t))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	_, err := ReadXLSX([]byte("PK\x03\x04garbage"))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestReadUpload(t *testing.T) {
	raw, err := ReadUpload([]byte("rate,approx_cost(for two people)\n4.1/5,800\n"), ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, raw.Rows, 1)
	assert.False(t, IsWorkbook([]byte("rate,cost\n")))

	raw, err = ReadUpload(workbookBytes(t, []interface{}{"rate"}, []interface{}{"4.0/5"}), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"rate"}, raw.Headers)
}
