package dataset

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding names accepted by ReadOptions.
const (
	EncodingLatin1      = "latin1"
	EncodingWindows1252 = "cp1252"
	EncodingUTF8        = "utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadOptions configures ReadCSV.
type ReadOptions struct {
	// Encoding of the input bytes. Empty means Latin-1.
	Encoding string
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// ReadCSV decodes a delimited file into a RawTable. The first record is the
// header. Rows shorter than the header are padded with empty cells and longer
// rows are truncated, so every row lines up with the headers.
func ReadCSV(r io.Reader, opts ReadOptions) (RawTable, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return RawTable{}, fmt.Errorf("skip byte order mark: %w", err)
		}
	}

	src, err := decodeReader(br, opts.Encoding)
	if err != nil {
		return RawTable{}, err
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return RawTable{}, ErrEmptyInput
	}
	if err != nil {
		return RawTable{}, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	table := RawTable{Headers: headers}
	width := len(headers)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RawTable{}, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		table.Rows = append(table.Rows, alignRow(rec, width))
	}
	return table, nil
}

func alignRow(rec []string, width int) []string {
	switch {
	case len(rec) < width:
		padded := make([]string, width)
		copy(padded, rec)
		return padded
	case len(rec) > width:
		return rec[:width]
	}
	return rec
}

// ReadCSVBytes reads an in-memory upload.
func ReadCSVBytes(content []byte, opts ReadOptions) (RawTable, error) {
	return ReadCSV(bytes.NewReader(content), opts)
}

func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingLatin1, "latin-1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case EncodingWindows1252, "windows-1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case EncodingUTF8, "utf-8":
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}
}

// ValidEncoding reports whether ReadCSV understands the encoding name.
func ValidEncoding(encoding string) bool {
	_, err := decodeReader(strings.NewReader(""), encoding)
	return err == nil
}

// Fingerprint returns the hex SHA-256 of the uploaded bytes. It is the cache
// key for normalized tables.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
