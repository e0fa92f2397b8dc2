package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"platepulse/internal/auth"
	"platepulse/internal/config"
	apierrors "platepulse/internal/errors"
	"platepulse/internal/middleware"
)

// Messages shown on the login page.
const (
	MessageLoginSuccess = "Login successful!"
	MessageLoginInvalid = "Invalid username or password"
	MessageThrottled    = "Too many login attempts. Please wait a minute and try again."
)

// LoginRequest is the body of POST /api/auth/login and the login form.
type LoginRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,max=128"`
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresIn int       `json:"expires_in"`
}

// AuthHandler handles login and logout, for both the HTML form and the JSON API
type AuthHandler struct {
	service      AuthService
	cookie       CookieConfig
	validator    *middleware.RequestValidator
	templates    *Templates
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService, cookie CookieConfig, templates *Templates, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		cookie:       cookie,
		validator:    middleware.NewRequestValidator(logger, errorHandler),
		templates:    templates,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "auth")),
	}
}

// Routes returns the JSON auth routes mounted under /api/auth
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.With(h.validator.JSONBody).Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/session", h.Session)
	return r
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	session, err := h.service.Login(r.Context(), req.Username, req.Password, clientKey(r))
	if err != nil {
		if errors.Is(err, auth.ErrThrottled) {
			w.Header().Set("Retry-After", "60")
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.cookie.set(w, session.ID)
	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"message": MessageLoginSuccess,
		"session": h.sessionResponse(session),
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), sessionID(r))
	h.cookie.clear(w)
	render.JSON(w, r, map[string]interface{}{"success": true})
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.errorHandler.HandleError(w, r, auth.ErrSessionNotFound)
		return
	}
	render.JSON(w, r, h.sessionResponse(session))
}

// loginPageData fills login.html.
type loginPageData struct {
	AppName  string
	Title    string
	Username string
	Return   string
	Error    string
}

// LoginPage handles GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookie.Name); err == nil && cookie.Value != "" {
		if _, err := h.service.Session(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, safeReturn(r.URL.Query().Get("return"), "/"), http.StatusSeeOther)
			return
		}
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{Return: r.URL.Query().Get("return")})
}

// LoginForm handles POST /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Error: MessageLoginInvalid})
		return
	}
	req := LoginRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	data := loginPageData{Username: req.Username, Return: r.PostForm.Get("return")}

	if err := h.validator.Struct(req); err != nil {
		data.Error = MessageLoginInvalid
		h.renderLogin(w, r, http.StatusUnauthorized, data)
		return
	}

	session, err := h.service.Login(r.Context(), req.Username, req.Password, clientKey(r))
	switch {
	case errors.Is(err, auth.ErrThrottled):
		w.Header().Set("Retry-After", "60")
		data.Error = MessageThrottled
		h.renderLogin(w, r, http.StatusTooManyRequests, data)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		data.Error = MessageLoginInvalid
		h.renderLogin(w, r, http.StatusUnauthorized, data)
		return
	case err != nil:
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.cookie.set(w, session.ID)
	http.Redirect(w, r, safeReturn(data.Return, "/pages/welcome?login=1"), http.StatusSeeOther)
}

// LogoutForm handles POST /logout
func (h *AuthHandler) LogoutForm(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), sessionID(r))
	h.cookie.clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	data.AppName = config.AppName
	data.Title = "Login"
	if err := h.templates.Render(w, status, "login.html", data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render login page", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
	}
}

func (h *AuthHandler) sessionResponse(s auth.Session) SessionResponse {
	return SessionResponse{
		Username:  s.Username,
		CreatedAt: s.CreatedAt,
		ExpiresIn: int(h.cookie.TTL.Seconds()),
	}
}
