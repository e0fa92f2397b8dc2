package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"platepulse/internal/config"
	apierrors "platepulse/internal/errors"
	"platepulse/internal/insights"
	"platepulse/internal/middleware"
	"platepulse/internal/services"
)

// Dashboard copy.
const (
	WelcomeText    = "This dashboard provides insights into restaurant ratings, costs, and service types based on the Zomato dataset."
	MessageNoFile  = "Please upload a CSV file to proceed."
	MessageUpdated = "Dataset uploaded."
)

// page is one entry of the sidebar navigation.
type page struct {
	Slug    string
	Label   string
	Heading string
	Chart   string
}

var pages = []page{
	{Slug: "welcome", Label: "Welcome", Heading: "🍽️ Welcome to " + config.AppName},
	{Slug: "overview", Label: "Overview", Heading: "Restaurant Data Overview"},
	{Slug: "ratings", Label: "Rating Distribution", Heading: "Distribution of Aggregate Ratings", Chart: ChartRatingDistribution},
	{Slug: "online", Label: "Online Ordering", Heading: "Online Ordering Availability", Chart: ChartOnlineOrdering},
	{Slug: "cost-vs-rating", Label: "Cost vs Rating", Heading: "Cost for Two vs Aggregate Rating", Chart: ChartCostVsRating},
	{Slug: "types", Label: "Restaurant Types", Heading: "Top Restaurant Types", Chart: ChartListingTypes},
}

func findPage(slug string) (page, bool) {
	for _, p := range pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return page{}, false
}

// pageData fills page.html.
type pageData struct {
	AppName  string
	Title    string
	Heading  string
	Active   string
	Nav      []page
	Username string
	Welcome  string
	Flash    string
	Warning  string
	Error    string
	Dataset  *services.DatasetInfo
	Preview  *insights.PreviewView
	Chart    string
}

// PageHandler serves the HTML dashboard
type PageHandler struct {
	service      DatasetService
	templates    *Templates
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(service DatasetService, templates *Templates, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		service:      service,
		templates:    templates,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "page_handler")),
	}
}

// Index handles GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/pages/welcome", http.StatusSeeOther)
}

// Page handles GET /pages/{page}
func (h *PageHandler) Page(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	p, ok := findPage(name)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("page "+name))
		return
	}

	data := h.newPageData(r, p)
	if r.URL.Query().Get("login") == "1" {
		data.Flash = MessageLoginSuccess
	}
	if r.URL.Query().Get("uploaded") == "1" {
		data.Flash = MessageUpdated
	}

	status := http.StatusOK
	if err := h.fill(r, p, &data); err != nil {
		problem := h.errorHandler.ErrorToProblem(err, r)
		if problem.Status >= http.StatusInternalServerError {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		data.Error = problem.Detail
		status = problem.Status
	}
	h.render(w, r, status, data)
}

// Upload handles POST /upload, the sidebar upload form
func (h *PageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data := h.newPageData(r, pages[0])

	filename, content, err := readUpload(w, r, h.service.Options())
	if errors.Is(err, http.ErrMissingFile) {
		data.Warning = MessageNoFile
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	if err == nil {
		_, err = h.service.Upload(r.Context(), sessionID(r), filename, content)
	}
	if err != nil {
		problem := h.errorHandler.ErrorToProblem(err, r)
		if problem.Status >= http.StatusInternalServerError {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.logger.InfoContext(r.Context(), "upload rejected",
			slog.String("filename", filename),
			slog.String("problem", problem.Type))
		data.Error = problem.Detail
		data.Dataset, _ = h.service.Info(r.Context(), sessionID(r))
		h.render(w, r, problem.Status, data)
		return
	}

	http.Redirect(w, r, "/pages/overview?uploaded=1", http.StatusSeeOther)
}

func (h *PageHandler) newPageData(r *http.Request, p page) pageData {
	data := pageData{
		AppName: config.AppName,
		Title:   p.Label,
		Heading: p.Heading,
		Active:  p.Slug,
		Nav:     pages,
		Welcome: WelcomeText,
		Chart:   p.Chart,
	}
	if s, ok := middleware.SessionFromContext(r.Context()); ok {
		data.Username = s.Username
	}
	return data
}

// fill loads the dataset the page shows. Without one the page carries the
// upload warning instead of a chart.
func (h *PageHandler) fill(r *http.Request, p page, data *pageData) error {
	info, err := h.service.Info(r.Context(), sessionID(r))
	switch {
	case errors.Is(err, services.ErrNoDataset):
		data.Warning = MessageNoFile
		data.Chart = ""
		return nil
	case err != nil:
		return err
	}
	data.Dataset = info

	if p.Slug == "overview" {
		preview, err := h.service.Preview(r.Context(), sessionID(r), 0)
		if err != nil {
			return err
		}
		data.Preview = &preview
	}
	return nil
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	if err := h.templates.Render(w, status, "page.html", data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("page", data.Active),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
	}
}
