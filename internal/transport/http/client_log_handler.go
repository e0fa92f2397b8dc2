package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "platepulse/internal/errors"
	"platepulse/internal/middleware"
)

const maxClientMessage = 2048

// ClientLogEntry is an error reported by a dashboard page, typically a
// chart frame whose scripts failed to load.
type ClientLogEntry struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required"`
	Page    string                 `json:"page,omitempty" validate:"max=256"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ClientLogHandler writes browser-side reports into the server log.
type ClientLogHandler struct {
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

func NewClientLogHandler(errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		validator:    middleware.NewRequestValidator(logger, errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "client_log")),
	}
}

func (h *ClientLogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.RequireContentType("application/json"), h.validator.JSONBody).Post("/", h.Record)
	return r
}

// Record handles POST /api/client-log. Accepted entries get 204.
func (h *ClientLogHandler) Record(w http.ResponseWriter, r *http.Request) {
	var entry ClientLogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.Struct(entry); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	level := slog.LevelInfo
	if entry.Level != "" {
		_ = level.UnmarshalText([]byte(entry.Level))
	}
	msg := entry.Message
	if len(msg) > maxClientMessage {
		msg = msg[:maxClientMessage]
	}

	attrs := []slog.Attr{
		slog.String("page", entry.Page),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	}
	if s, ok := middleware.SessionFromContext(r.Context()); ok {
		attrs = append(attrs, slog.String("user", s.Username))
	}
	if len(entry.Data) > 0 {
		attrs = append(attrs, slog.Any("data", entry.Data))
	}
	h.logger.LogAttrs(r.Context(), level, msg, attrs...)

	w.WriteHeader(http.StatusNoContent)
}
