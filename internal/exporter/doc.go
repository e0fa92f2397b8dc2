// Package exporter writes normalized datasets for download.
//
// Writer supports CSV (optionally with a UTF-8 BOM so spreadsheet tools
// detect the encoding) and XLSX through excelize:
//
//	w := exporter.NewWriter(logger)
//	err := w.Write(resp, exporter.FormatXLSX, exporter.WriteOptions{
//		Headers: table.Columns,
//		Records: records,
//	})
package exporter
