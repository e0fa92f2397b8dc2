package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"platepulse/internal/charts"
	"platepulse/internal/config"
	apierrors "platepulse/internal/errors"
	"platepulse/internal/insights"
)

// Chart names used in /charts/{name} and /api/charts/{name}.
const (
	ChartRatingDistribution = "rating-distribution"
	ChartOnlineOrdering     = "online-ordering"
	ChartCostVsRating       = "cost-vs-rating"
	ChartListingTypes       = "listing-types"
)

var chartTitles = map[string]string{
	ChartRatingDistribution: "Distribution of Aggregate Ratings",
	ChartOnlineOrdering:     "Online Ordering Availability",
	ChartCostVsRating:       "Cost for Two vs Aggregate Rating",
	ChartListingTypes:       "Top Restaurant Types",
}

// ChartView is the JSON form of a chart: its data series, or a warning when
// the optional column it draws is unavailable.
type ChartView struct {
	Name    string      `json:"name"`
	Title   string      `json:"title"`
	Data    interface{} `json:"data,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

// ChartHandler serves chart data as JSON and as go-echarts HTML
type ChartHandler struct {
	service      DatasetService
	builder      *charts.Builder
	templates    *Templates
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewChartHandler creates a new chart handler
func NewChartHandler(service DatasetService, builder *charts.Builder, templates *Templates, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ChartHandler {
	return &ChartHandler{
		service:      service,
		builder:      builder,
		templates:    templates,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "chart_handler")),
	}
}

// Routes returns the JSON chart routes mounted under /api/charts
func (h *ChartHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/{name}", h.GetChartData)
	return r
}

// GetChartData handles GET /api/charts/{name}
func (h *ChartHandler) GetChartData(w http.ResponseWriter, r *http.Request) {
	view, _, err := h.load(r.Context(), sessionID(r), chi.URLParam(r, "name"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// RenderChart handles GET /charts/{name}, the page embedded by the dashboard
func (h *ChartHandler) RenderChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	view, chart, err := h.load(r.Context(), sessionID(r), name)
	if err != nil {
		problem := h.errorHandler.ErrorToProblem(err, r)
		if problem.Status >= http.StatusInternalServerError {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.notice(w, r, problem.Status, "warning", problem.Detail)
		return
	}
	if view.Warning != "" {
		h.notice(w, r, http.StatusOK, "warning", view.Warning)
		return
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render chart",
			slog.String("chart", name),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// load resolves a chart by name. An absent optional column is not an error:
// the view carries a warning and no chart.
func (h *ChartHandler) load(ctx context.Context, sid, name string) (ChartView, charts.Renderer, error) {
	view := ChartView{Name: name, Title: chartTitles[name]}

	var (
		data  interface{}
		chart charts.Renderer
		err   error
	)
	switch name {
	case ChartRatingDistribution:
		var hist insights.Histogram
		hist, err = h.service.RatingHistogram(ctx, sid)
		if err == nil {
			data, chart = hist, h.builder.RatingDistribution(hist)
		}
	case ChartOnlineOrdering:
		var shares []insights.Share
		shares, err = h.service.OnlineOrdering(ctx, sid)
		if err == nil {
			data, chart = shares, h.builder.OnlineOrdering(shares)
		}
	case ChartCostVsRating:
		var points []insights.Point
		points, err = h.service.CostVsRating(ctx, sid)
		if err == nil {
			data, chart = points, h.builder.CostVsRating(points)
		}
	case ChartListingTypes:
		var shares []insights.Share
		shares, err = h.service.ListingTypes(ctx, sid)
		if err == nil {
			view.Title = fmt.Sprintf("Top %d Restaurant Types", h.service.Options().TopTypes)
			data, chart = shares, h.builder.ListingTypes(shares)
		}
	default:
		return view, nil, apierrors.ErrChartNotFound
	}

	var optional *insights.OptionalColumnError
	if errors.As(err, &optional) {
		view.Warning = optional.Warning
		return view, nil, nil
	}
	if err != nil {
		return view, nil, err
	}
	view.Data = data
	return view, chart, nil
}

func (h *ChartHandler) notice(w http.ResponseWriter, r *http.Request, status int, level, message string) {
	data := noticeData{AppName: config.AppName, Title: "Chart", Level: level, Message: message}
	if err := h.templates.Render(w, status, "notice.html", data); err != nil {
		h.errorHandler.HandleError(w, r, err)
	}
}
