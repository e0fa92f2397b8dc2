package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"platepulse/internal/dataset"
	"platepulse/internal/insights"
	"platepulse/internal/validation"
)

// maxCellWidth caps preview cells so long review text does not wrap the table.
const maxCellWidth = 32

func newInspectCmd() *cobra.Command {
	var input, encoding string
	var rows int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the normalization report, summary statistics and a preview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows < 0 {
				return fmt.Errorf("--rows must not be negative")
			}
			table, err := loadTable(validation.NewFileValidator(cliLogger(cmd)), input, encoding)
			if err != nil {
				return err
			}
			return writeInspection(cmd.OutOrStdout(), input, table, rows)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "listings file to read (.csv or .xlsx)")
	cmd.Flags().StringVar(&encoding, "encoding", dataset.EncodingLatin1, "text encoding of CSV input (latin1, cp1252, utf8)")
	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "preview rows to print")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func writeInspection(out io.Writer, name string, table *dataset.CleanTable, rows int) error {
	r := table.Report
	fmt.Fprintf(out, "%s\n\n", name)
	fmt.Fprintf(out, "Rows read:           %d\n", r.RowsIn)
	fmt.Fprintf(out, "Rows kept:           %d\n", r.RowsOut)
	fmt.Fprintf(out, "Dropped (marker):    %d\n", r.DroppedMarker)
	fmt.Fprintf(out, "Dropped (rating):    %d\n", r.DroppedRating)
	fmt.Fprintf(out, "Dropped (cost):      %d\n", r.DroppedCost)
	if len(r.OptionalMissing) > 0 {
		fmt.Fprintf(out, "Missing columns:     %s\n", strings.Join(r.OptionalMissing, ", "))
	}

	desc, err := insights.Describe(table)
	if errors.Is(err, insights.ErrNoRows) {
		fmt.Fprintln(out, "\nNo usable rows.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nSummary statistics")
	for _, line := range alignTable(desc) {
		fmt.Fprintln(out, line)
	}

	if rows == 0 {
		return nil
	}
	preview := insights.Preview(table, rows)
	fmt.Fprintf(out, "\nPreview (%d of %d rows)\n", len(preview.Rows), preview.TotalRows)
	for _, line := range alignTable(append([][]string{preview.Columns}, preview.Rows...)) {
		fmt.Fprintln(out, line)
	}
	return nil
}

// alignTable renders rows as a pipe table. The first row is the header.
// Widths are display widths, so wide characters in restaurant names line up.
func alignTable(table [][]string) []string {
	if len(table) == 0 {
		return nil
	}
	colCount := 0
	for _, row := range table {
		colCount = max(colCount, len(row))
	}

	cells := make([][]string, len(table))
	widths := make([]int, colCount)
	for i, row := range table {
		cells[i] = make([]string, colCount)
		for j := 0; j < colCount; j++ {
			if j < len(row) {
				cells[i][j] = runewidth.Truncate(row[j], maxCellWidth, "...")
			}
			widths[j] = max(widths[j], runewidth.StringWidth(cells[i][j]), 3)
		}
	}

	lines := make([]string, 0, len(cells)+1)
	for i, row := range cells {
		var sb strings.Builder
		sb.WriteString("|")
		for j, content := range row {
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(content, widths[j]))
			sb.WriteString(" |")
		}
		lines = append(lines, sb.String())

		if i == 0 {
			sb.Reset()
			sb.WriteString("|")
			for _, w := range widths {
				sb.WriteString(" ")
				sb.WriteString(strings.Repeat("-", w))
				sb.WriteString(" |")
			}
			lines = append(lines, sb.String())
		}
	}
	return lines
}
