// Package charts renders dashboard views as standalone ECharts HTML pages.
package charts

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"platepulse/internal/insights"
)

// DefaultAssetsHost serves echarts.min.js for the rendered pages.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Renderer is implemented by every go-echarts chart.
type Renderer interface {
	Render(w io.Writer) error
}

// Builder creates charts with shared page options.
type Builder struct {
	AssetsHost string
	Width      string
	Height     string
}

// NewBuilder returns a builder that loads scripts from assetsHost.
func NewBuilder(assetsHost string) *Builder {
	if assetsHost == "" {
		assetsHost = DefaultAssetsHost
	}
	return &Builder{AssetsHost: assetsHost, Width: "100%", Height: "520px"}
}

func (b *Builder) init(pageTitle string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle:  pageTitle,
		Width:      b.Width,
		Height:     b.Height,
		AssetsHost: b.AssetsHost,
	})
}

// RatingDistribution draws the rating histogram as a bar chart.
func (b *Builder) RatingDistribution(h insights.Histogram) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		b.init("Rating Distribution"),
		charts.WithTitleOpts(opts.Title{Title: "Distribution of Aggregate Ratings"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Rating"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
	)

	labels := make([]string, 0, len(h.Bins))
	items := make([]opts.BarData, 0, len(h.Bins))
	for _, bin := range h.Bins {
		labels = append(labels, fmt.Sprintf("%s-%s", formatEdge(bin.Lower), formatEdge(bin.Upper)))
		items = append(items, opts.BarData{Value: bin.Count})
	}
	bar.SetXAxis(labels).AddSeries("Restaurants", items,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "teal"}),
		charts.WithBarChartOpts(opts.BarChart{BarCategoryGap: "0%"}),
	)
	return bar
}

// OnlineOrdering draws the online-ordering proportion as a pie chart.
func (b *Builder) OnlineOrdering(shares []insights.Share) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		b.init("Online Ordering"),
		charts.WithTitleOpts(opts.Title{Title: "Online Ordering Availability"}),
		charts.WithColorsOpts(opts.Colors{"#ff9999", "#66b3ff"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Bottom: "0"}),
	)

	items := make([]opts.PieData, 0, len(shares))
	for _, s := range shares {
		items = append(items, opts.PieData{Name: s.Value, Value: s.Count})
	}
	pie.AddSeries("has_online_delivery", items,
		charts.WithLabelOpts(opts.Label{Show: true, Formatter: "{b}: {d}%"}),
		charts.WithPieChartOpts(opts.PieChart{Radius: "60%"}),
	)
	return pie
}

// CostVsRating draws one point per restaurant.
func (b *Builder) CostVsRating(points []insights.Point) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		b.init("Cost vs Rating"),
		charts.WithTitleOpts(opts.Title{Title: "Cost for Two vs Aggregate Rating"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Average Cost for Two", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Rating", Type: "value"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
	)

	items := make([]opts.ScatterData, 0, len(points))
	for _, p := range points {
		items = append(items, opts.ScatterData{Value: []interface{}{p.Cost, p.Rating}, SymbolSize: 6})
	}
	scatter.AddSeries("Restaurants", items)
	return scatter
}

// ListingTypes draws the most common listing types as a bar chart.
func (b *Builder) ListingTypes(shares []insights.Share) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		b.init("Restaurant Types"),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Top %d Restaurant Types", len(shares))}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Type", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Number of Restaurants"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
	)

	labels := make([]string, 0, len(shares))
	items := make([]opts.BarData, 0, len(shares))
	for _, s := range shares {
		labels = append(labels, s.Value)
		items = append(items, opts.BarData{Value: s.Count})
	}
	bar.SetXAxis(labels).AddSeries("Restaurants", items,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "coral"}),
	)
	return bar
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
