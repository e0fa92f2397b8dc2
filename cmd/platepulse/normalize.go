package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"platepulse/internal/dataset"
	"platepulse/internal/exporter"
	"platepulse/internal/infrastructure"
	"platepulse/internal/services"
	"platepulse/internal/validation"
)

// loadTable reads and normalizes a listings file from disk.
func loadTable(validator *validation.FileValidator, path, encoding string) (*dataset.CleanTable, error) {
	if !dataset.ValidEncoding(encoding) {
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	if err := validator.ValidateListingFile(path); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	raw, err := dataset.ReadUpload(content, dataset.ReadOptions{Encoding: encoding})
	if err != nil {
		return nil, err
	}
	return dataset.Normalize(raw)
}

func newNormalizeCmd() *cobra.Command {
	var input, output, encoding string

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Clean a listings file and write it as CSV or XLSX",
		Long: `Applies the dashboard's normalization to a file offline: headers are
canonicalized, ratings and costs parsed and unusable rows dropped.
The output format follows the extension of --output (.csv or .xlsx).

Example:
  platepulse normalize -i zomato.csv -o clean.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := infrastructure.EnsureTraceID(cmd.Context())
			logger := cliLogger(cmd)
			validator := validation.NewFileValidator(logger)

			table, err := loadTable(validator, input, encoding)
			if err != nil {
				return err
			}
			if err := validator.ValidateExportPath(output); err != nil {
				return err
			}
			logger.InfoContext(ctx, "Normalized input",
				slog.String("input", input),
				slog.Int("rows_in", table.Report.RowsIn),
				slog.Int("rows_out", table.Report.RowsOut),
				slog.Int("dropped", table.Report.Dropped()))

			if err := exporter.NewWriter(logger).WriteFile(output, services.ExportOptions(table)); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", table.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "listings file to read (.csv or .xlsx)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (.csv or .xlsx)")
	cmd.Flags().StringVar(&encoding, "encoding", dataset.EncodingLatin1, "text encoding of CSV input (latin1, cp1252, utf8)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
