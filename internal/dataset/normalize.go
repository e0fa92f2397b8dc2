package dataset

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonCanonicalChars = regexp.MustCompile(`[^a-z0-9_]`)
	ratingNumber      = regexp.MustCompile(`\d+\.?\d*`)
	decimalNumber     = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// ratingMarkers are placeholder ratings that mean "not rated yet". Rows
// carrying them are excluded before any parsing happens.
var ratingMarkers = map[string]struct{}{
	"NEW": {},
	"-":   {},
	"nan": {},
}

// columnRole binds a canonical output column to the header spellings that
// supply it. The output name is accepted as an alias so a clean table can be
// normalized again without change.
type columnRole struct {
	target   string
	aliases  []string
	required bool
}

var columnRoles = []columnRole{
	{target: ColumnRating, aliases: []string{"rate", ColumnRating}, required: true},
	{target: ColumnCost, aliases: []string{"approx_costfor_two_people", ColumnCost}, required: true},
	{target: ColumnOnlineOrder, aliases: []string{"online_order", ColumnOnlineOrder}},
	{target: ColumnListingType, aliases: []string{"listed_intype", ColumnListingType}},
}

// CanonicalName lowercases and trims a header, turns spaces into underscores
// and drops every character outside [a-z0-9_].
func CanonicalName(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.ReplaceAll(h, " ", "_")
	return nonCanonicalChars.ReplaceAllString(h, "")
}

// ParseRating extracts the first unsigned decimal number from a rating cell,
// so "4.1/5" yields 4.1.
func ParseRating(text string) (float64, bool) {
	m := ratingNumber.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCost strips thousands separators and parses the remainder as a plain
// decimal number. Hex floats, underscores and NaN/Inf spellings are rejected.
func ParseCost(text string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if !decimalNumber.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// IsRatingMarker reports whether a rating cell is a placeholder such as "NEW".
// The comparison is case-sensitive and ignores surrounding whitespace.
func IsRatingMarker(text string) bool {
	_, ok := ratingMarkers[strings.TrimSpace(text)]
	return ok
}

// Normalize cleans a raw table. It is pure and deterministic.
//
// The steps run in a fixed order: header canonicalization, rating marker
// filter and numeric extraction, cost parsing, column renaming, and the
// completeness filter. A missing rating or cost column yields a
// *MissingColumnError; two headers that land on the same canonical name yield
// a *HeaderCollisionError. Rows with unparseable values are dropped and only
// show up in the Report counts.
func Normalize(raw RawTable) (*CleanTable, error) {
	columns, err := canonicalHeaders(raw.Headers)
	if err != nil {
		return nil, err
	}

	position := make(map[string]int, len(columns))
	for i, c := range columns {
		position[c] = i
	}

	renamed := append([]string(nil), columns...)
	ratingIdx, costIdx := -1, -1
	var missing, optionalMissing []string
	accepted := make(map[string][]string)

	for _, role := range columnRoles {
		idx, err := role.resolve(raw.Headers, position)
		if err != nil {
			return nil, err
		}
		if idx < 0 {
			if role.required {
				missing = append(missing, role.target)
				accepted[role.target] = role.aliases
			} else {
				optionalMissing = append(optionalMissing, role.target)
			}
			continue
		}
		renamed[idx] = role.target
		switch role.target {
		case ColumnRating:
			ratingIdx = idx
		case ColumnCost:
			costIdx = idx
		}
	}

	if len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing, Accepted: accepted}
	}

	table := newCleanTable(renamed)
	table.Report.RowsIn = len(raw.Rows)
	table.Report.OptionalMissing = optionalMissing
	table.Rows = make([]Record, 0, len(raw.Rows))

	for _, row := range raw.Rows {
		ratingText := cellAt(row, ratingIdx)
		// A blank rating is a missing value and goes with the "nan" marker.
		if strings.TrimSpace(ratingText) == "" || IsRatingMarker(ratingText) {
			table.Report.DroppedMarker++
			continue
		}
		rating, ok := ParseRating(ratingText)
		if !ok {
			table.Report.DroppedRating++
			continue
		}
		cost, ok := ParseCost(cellAt(row, costIdx))
		if !ok {
			table.Report.DroppedCost++
			continue
		}

		cells := make([]string, len(renamed))
		copy(cells, row)
		cells[ratingIdx] = formatNumber(rating)
		cells[costIdx] = formatNumber(cost)
		table.Rows = append(table.Rows, Record{Rating: rating, Cost: cost, Cells: cells})
	}

	table.Report.RowsOut = len(table.Rows)
	return table, nil
}

// canonicalHeaders canonicalizes every header and fails on the first
// collision. A header that canonicalizes to nothing is named after its
// position, the way spreadsheet tools label unnamed columns.
func canonicalHeaders(headers []string) ([]string, error) {
	columns := make([]string, len(headers))
	sources := make(map[string][]string, len(headers))
	order := make([]string, 0, len(headers))

	for i, h := range headers {
		c := CanonicalName(h)
		if c == "" {
			c = fmt.Sprintf("unnamed_%d", i)
		}
		columns[i] = c
		if _, seen := sources[c]; !seen {
			order = append(order, c)
		}
		sources[c] = append(sources[c], h)
	}

	for _, c := range order {
		if len(sources[c]) > 1 {
			return nil, &HeaderCollisionError{Column: c, Headers: sources[c]}
		}
	}
	return columns, nil
}

// resolve finds the single header that supplies the role, -1 when absent.
func (r columnRole) resolve(headers []string, position map[string]int) (int, error) {
	idx := -1
	var found []string
	for _, alias := range r.aliases {
		i, ok := position[alias]
		if !ok {
			continue
		}
		found = append(found, headers[i])
		idx = i
	}
	if len(found) > 1 {
		return -1, &HeaderCollisionError{Column: r.target, Headers: found}
	}
	return idx, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
