package insights

import (
	"errors"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"platepulse/internal/dataset"
)

// ErrNoRows is returned by views that need at least one row.
var ErrNoRows = errors.New("dataset has no rows")

// Frame loads a clean table into a gota DataFrame. Rating and cost are typed
// as floats, every other column as text.
func Frame(t *dataset.CleanTable) (dataframe.DataFrame, error) {
	if t.Len() == 0 {
		return dataframe.DataFrame{}, ErrNoRows
	}
	df := dataframe.LoadRecords(t.Strings(),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(map[string]series.Type{
			dataset.ColumnRating: series.Float,
			dataset.ColumnCost:   series.Float,
		}),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load dataframe: %w", df.Err)
	}
	return df, nil
}

// Describe returns summary statistics for every column (mean, median,
// standard deviation, min, quartiles, max) as text records, header first.
func Describe(t *dataset.CleanTable) ([][]string, error) {
	df, err := Frame(t)
	if err != nil {
		return nil, err
	}
	desc := df.Describe()
	if desc.Err != nil {
		return nil, fmt.Errorf("describe dataframe: %w", desc.Err)
	}
	return desc.Records(), nil
}
