// Package insights computes the read-only views shown on the dashboard from a
// normalized dataset. Every function is pure; none of them mutate the table.
package insights

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"platepulse/internal/dataset"
)

// ErrOptionalColumnAbsent marks a view whose optional column is missing. It
// is a warning for the user, never a failure of the request.
var ErrOptionalColumnAbsent = errors.New("optional column absent")

// Default view sizes.
const (
	DefaultPreviewRows   = 50
	DefaultHistogramBins = 20
	DefaultTopTypes      = 10
)

// OptionalColumnError names the optional column a view could not find and
// carries the message shown in its place.
type OptionalColumnError struct {
	Column  string
	Warning string
}

func (e *OptionalColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrOptionalColumnAbsent, e.Column)
}

func (e *OptionalColumnError) Unwrap() error {
	return ErrOptionalColumnAbsent
}

// Warnings shown when optional data is unavailable.
const (
	WarningOnlineDelivery = "Online delivery column is missing."
	WarningListingTypes   = "Restaurant types data not available."
)

// PreviewView is the tabular overview.
type PreviewView struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// Preview returns the first n rows of the table.
func Preview(t *dataset.CleanTable, n int) PreviewView {
	if n <= 0 {
		n = DefaultPreviewRows
	}
	if n > t.Len() {
		n = t.Len()
	}
	rows := make([][]string, 0, n)
	for _, r := range t.Rows[:n] {
		rows = append(rows, append([]string(nil), r.Cells...))
	}
	return PreviewView{
		Columns:   append([]string(nil), t.Columns...),
		Rows:      rows,
		TotalRows: t.Len(),
	}
}

// Bin is one histogram bucket, [Lower, Upper) except for the last bucket
// which also includes Upper.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is the rating distribution.
type Histogram struct {
	Column string  `json:"column"`
	Bins   []Bin   `json:"bins"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Total  int     `json:"total"`
}

// RatingHistogram buckets aggregate ratings into equal-width bins spanning
// the observed range. When every rating is equal the range is widened by 0.5
// on each side.
func RatingHistogram(t *dataset.CleanTable, bins int) Histogram {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	h := Histogram{Column: dataset.ColumnRating, Total: t.Len()}
	if t.Len() == 0 {
		return h
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range t.Rows {
		lo = math.Min(lo, r.Rating)
		hi = math.Max(hi, r.Rating)
	}
	h.Min, h.Max = lo, hi
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	h.Bins = make([]Bin, bins)
	for i := range h.Bins {
		h.Bins[i].Lower = lo + float64(i)*width
		h.Bins[i].Upper = lo + float64(i+1)*width
	}
	h.Bins[bins-1].Upper = hi

	for _, r := range t.Rows {
		i := int((r.Rating - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		// Correct for rounding in the division so values on an edge land in
		// the bin that starts there.
		if i > 0 && r.Rating < h.Bins[i].Lower {
			i--
		} else if i < bins-1 && r.Rating >= h.Bins[i+1].Lower {
			i++
		}
		h.Bins[i].Count++
	}
	return h
}

// Share is one slice of a proportion view.
type Share struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// OnlineOrderingShare counts the values of has_online_delivery, most frequent
// first. Empty cells are not counted.
func OnlineOrderingShare(t *dataset.CleanTable) ([]Share, error) {
	if !t.HasColumn(dataset.ColumnOnlineOrder) {
		return nil, &OptionalColumnError{Column: dataset.ColumnOnlineOrder, Warning: WarningOnlineDelivery}
	}
	return valueCounts(t, dataset.ColumnOnlineOrder, 0), nil
}

// TopListingTypes returns the k most frequent listing types. It reports the
// column as absent when it is missing or has no values at all.
func TopListingTypes(t *dataset.CleanTable, k int) ([]Share, error) {
	if k <= 0 {
		k = DefaultTopTypes
	}
	absent := &OptionalColumnError{Column: dataset.ColumnListingType, Warning: WarningListingTypes}
	if !t.HasColumn(dataset.ColumnListingType) {
		return nil, absent
	}
	shares := valueCounts(t, dataset.ColumnListingType, k)
	if len(shares) == 0 {
		return nil, absent
	}
	return shares, nil
}

// Point is one restaurant on the cost/rating plane.
type Point struct {
	Cost   float64 `json:"cost"`
	Rating float64 `json:"rating"`
}

// CostVsRating returns one point per row, in table order.
func CostVsRating(t *dataset.CleanTable) []Point {
	points := make([]Point, 0, t.Len())
	for _, r := range t.Rows {
		points = append(points, Point{Cost: r.Cost, Rating: r.Rating})
	}
	return points
}

// Stat is a min/mean/max triple.
type Stat struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

// Summary is the headline numbers of a dataset.
type Summary struct {
	Rows   int            `json:"rows"`
	Rating Stat           `json:"rating"`
	Cost   Stat           `json:"cost"`
	Report dataset.Report `json:"report"`
}

// Summarize computes row count and rating/cost ranges.
func Summarize(t *dataset.CleanTable) Summary {
	s := Summary{Rows: t.Len(), Report: t.Report}
	if t.Len() == 0 {
		return s
	}
	s.Rating = Stat{Min: math.Inf(1), Max: math.Inf(-1)}
	s.Cost = Stat{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, r := range t.Rows {
		s.Rating.Min = math.Min(s.Rating.Min, r.Rating)
		s.Rating.Max = math.Max(s.Rating.Max, r.Rating)
		s.Rating.Mean += r.Rating
		s.Cost.Min = math.Min(s.Cost.Min, r.Cost)
		s.Cost.Max = math.Max(s.Cost.Max, r.Cost)
		s.Cost.Mean += r.Cost
	}
	n := float64(t.Len())
	s.Rating.Mean /= n
	s.Cost.Mean /= n
	return s
}

func valueCounts(t *dataset.CleanTable, column string, limit int) []Share {
	idx, _ := t.ColumnIndex(column)
	counts := make(map[string]int)
	total := 0
	for _, r := range t.Rows {
		v := r.Cells[idx]
		if v == "" {
			continue
		}
		counts[v]++
		total++
	}

	shares := make([]Share, 0, len(counts))
	for v, c := range counts {
		shares = append(shares, Share{Value: v, Count: c, Percent: 100 * float64(c) / float64(total)})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Value < shares[j].Value
	})
	if limit > 0 && len(shares) > limit {
		shares = shares[:limit]
	}
	return shares
}
