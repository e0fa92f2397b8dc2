package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for dataset ingestion. Detailed variants wrap these so
// callers can match with errors.Is.
var (
	ErrMissingColumn   = errors.New("missing required column")
	ErrHeaderCollision = errors.New("header collision")
	ErrEmptyInput      = errors.New("empty input")
	ErrMalformedInput  = errors.New("malformed delimited input")
	ErrUnknownEncoding = errors.New("unknown text encoding")
)

// MissingColumnError reports required columns that could not be found after
// header canonicalization.
type MissingColumnError struct {
	// Columns holds the canonical output names that are missing.
	Columns []string
	// Accepted maps each missing column to the header spellings that would
	// have satisfied it.
	Accepted map[string][]string
}

func (e *MissingColumnError) Error() string {
	parts := make([]string, 0, len(e.Columns))
	for _, col := range e.Columns {
		if names := e.Accepted[col]; len(names) > 0 {
			parts = append(parts, fmt.Sprintf("%s (expected one of: %s)", col, strings.Join(names, ", ")))
			continue
		}
		parts = append(parts, col)
	}
	return fmt.Sprintf("%s: %s", ErrMissingColumn, strings.Join(parts, "; "))
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

// HeaderCollisionError reports several input headers that map onto the same
// canonical column.
type HeaderCollisionError struct {
	Column  string
	Headers []string
}

func (e *HeaderCollisionError) Error() string {
	quoted := make([]string, len(e.Headers))
	for i, h := range e.Headers {
		quoted[i] = fmt.Sprintf("%q", h)
	}
	return fmt.Sprintf("%s: headers %s all map to %q", ErrHeaderCollision, strings.Join(quoted, ", "), e.Column)
}

func (e *HeaderCollisionError) Unwrap() error {
	return ErrHeaderCollision
}
