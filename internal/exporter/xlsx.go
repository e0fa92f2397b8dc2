package exporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Restaurants"

// WriteXLSX writes a single-sheet workbook. Cells in NumericColumns that
// parse as numbers are stored as numbers; everything else is text.
func (w *Writer) WriteXLSX(out io.Writer, options WriteOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := options.SheetName
	if sheet == "" {
		sheet = defaultSheet
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	numeric := make(map[int]bool)
	for i, h := range options.Headers {
		for _, n := range options.NumericColumns {
			if h == n {
				numeric[i] = true
			}
		}
	}

	row := 1
	if len(options.Headers) > 0 {
		cells := make([]interface{}, len(options.Headers))
		for i, h := range options.Headers {
			cells[i] = excelize.Cell{StyleID: headerStyle, Value: h}
		}
		if err := setRow(sw, row, cells); err != nil {
			return err
		}
		row++
	}

	for i, record := range options.Records {
		cells := make([]interface{}, len(record))
		for j, v := range record {
			cells[j] = v
			if numeric[j] {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					cells[j] = n
				}
			}
		}
		if err := setRow(sw, row, cells); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
		row++
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(sw *excelize.StreamWriter, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return sw.SetRow(cell, cells)
}
