package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "platepulse/internal/errors"
	"platepulse/internal/exporter"
	"platepulse/internal/middleware"
)

const maxPreviewRows = 500

// DatasetHandler handles the dataset API with RFC 7807 errors
type DatasetHandler struct {
	service      DatasetService
	query        *middleware.QueryValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		query:        middleware.NewQueryValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "dataset_handler")),
	}
}

// Routes returns the dataset routes mounted under /api/dataset
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.RequireContentType("multipart/form-data")).Post("/", h.Upload)
	r.Get("/", h.Get)
	r.Get("/preview", h.Preview)
	r.With(middleware.TraceMiddleware("dataset.export")).Get("/export", h.Export)
	return r
}

// Upload handles POST /api/dataset
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	filename, content, err := readUpload(w, r, h.service.Options())
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	info, err := h.service.Upload(r.Context(), sessionID(r), filename, content)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"data":    info,
	})
}

// Get handles GET /api/dataset
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"data":    info,
	})
}

// Preview handles GET /api/dataset/preview?rows=n
func (h *DatasetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.query.Int(w, r, "rows", 1, maxPreviewRows, 0)
	if !ok {
		return
	}

	preview, err := h.service.Preview(r.Context(), sessionID(r), rows)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"data":    preview,
	})
}

// Export handles GET /api/dataset/export?format=csv|xlsx
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	name, ok := h.query.OneOf(w, r, "format", []string{string(exporter.FormatCSV), string(exporter.FormatXLSX)}, string(exporter.FormatCSV))
	if !ok {
		return
	}
	format, err := exporter.ParseFormat(name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Buffer so a failed export can still be reported as a problem.
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), sessionID(r), format, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename("restaurants_clean")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted", slog.String("error", err.Error()))
	}
}
