// Package dataset turns an uploaded restaurant-listing export into a clean,
// typed table that the dashboard views can rely on.
//
// The pipeline has three parts:
//
// ReadCSV: decodes the upload (Latin-1 by default) into a RawTable of header
// cells and untyped row cells. Short rows are padded, long rows truncated.
//
// Normalize: a pure function from RawTable to CleanTable. It canonicalizes the
// headers, drops rows whose rating is a placeholder marker ("NEW", "-", "nan"),
// extracts the numeric rating, strips thousands separators from the cost,
// renames the well-known columns and finally drops every row that lacks a
// rating or a cost.
//
// Cache: memoizes CleanTables by the SHA-256 fingerprint of the uploaded bytes.
// Each key is computed at most once, entries are never mutated, and an entry
// is evicted when its last holder releases it.
//
// Example usage:
//
//	raw, err := dataset.ReadCSV(file, dataset.ReadOptions{})
//	if err != nil {
//		return err
//	}
//	table, err := dataset.Normalize(raw)
//	var missing *dataset.MissingColumnError
//	if errors.As(err, &missing) {
//		// tell the user which columns the file lacks
//	}
package dataset
