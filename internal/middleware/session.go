package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"platepulse/internal/auth"
	apierrors "platepulse/internal/errors"
)

// SessionResolver looks up a live session by its id.
type SessionResolver interface {
	Session(ctx context.Context, id string) (auth.Session, error)
}

const sessionContextKey contextKey = "session"

// WithSession stores the authenticated session in ctx.
func WithSession(ctx context.Context, s auth.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the session stored by the gate.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(auth.Session)
	return s, ok
}

// SessionGate lets through only requests carrying a live session cookie.
// Browser requests without one are redirected to the login page; API
// requests get a 401 problem.
type SessionGate struct {
	sessions        SessionResolver
	cookieName      string
	loginURL        string
	logger          *slog.Logger
	excludePaths    map[string]struct{}
	excludePrefixes []string
}

// NewSessionGate creates the gate. cookieName names the session cookie.
func NewSessionGate(sessions SessionResolver, cookieName string, logger *slog.Logger) *SessionGate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &SessionGate{
		sessions:   sessions,
		cookieName: cookieName,
		loginURL:   "/login",
		logger:     logger.With(slog.String("component", "session_gate")),
		excludePaths: map[string]struct{}{
			"/login":            {},
			"/api/auth/login":   {},
			"/api/health":       {},
			"/api/health/ready": {},
			"/api/health/live":  {},
			"/api/version":      {},
			"/favicon.ico":      {},
			"/robots.txt":       {},
		},
		excludePrefixes: []string{"/static/"},
	}
	return g
}

// AddExcludePath lets path through without a session.
func (g *SessionGate) AddExcludePath(path string) {
	g.excludePaths[path] = struct{}{}
}

// Handler returns the middleware handler function
func (g *SessionGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.shouldExcludePath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		cookie, err := r.Cookie(g.cookieName)
		if err != nil || cookie.Value == "" {
			g.deny(w, r, "missing")
			return
		}

		session, err := g.sessions.Session(ctx, cookie.Value)
		if err != nil {
			g.logger.DebugContext(ctx, "session rejected",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()))
			g.clearCookie(w)
			g.deny(w, r, "expired")
			return
		}

		trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", session.Username))
		next.ServeHTTP(w, r.WithContext(WithSession(ctx, session)))
	})
}

func (g *SessionGate) shouldExcludePath(path string) bool {
	if _, ok := g.excludePaths[path]; ok {
		return true
	}
	for _, prefix := range g.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g *SessionGate) deny(w http.ResponseWriter, r *http.Request, reason string) {
	if isAPIRequest(r) {
		problem := apierrors.NewProblemDetails(
			http.StatusUnauthorized,
			apierrors.TypeUnauthorized,
			"Unauthorized",
			"Please log in to access the dashboard",
			r.URL.Path,
		).WithExtension("reason", reason)
		writeProblem(w, r, problem)
		return
	}

	target := g.loginURL
	if r.Method == http.MethodGet && r.URL.Path != "/" {
		target += "?return=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (g *SessionGate) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// isAPIRequest checks if the request expects a JSON response
func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
