package services

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"platepulse/internal/auth"
	"platepulse/internal/infrastructure"
)

// Login results recorded on the login attempts counter.
const (
	LoginSuccess   = "success"
	LoginFailure   = "failure"
	LoginThrottled = "throttled"
)

// AuthService logs users in and out of the dashboard.
type AuthService struct {
	credentials *auth.CredentialStore
	sessions    *auth.SessionStore
	throttle    *auth.Throttle
	metrics     *infrastructure.DatasetMetrics
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewAuthService creates an auth service. throttle and metrics may be nil.
func NewAuthService(credentials *auth.CredentialStore, sessions *auth.SessionStore, throttle *auth.Throttle, metrics *infrastructure.DatasetMetrics, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "auth_service")
	logger.Info("AuthService initialized", slog.Int("users", len(credentials.Usernames())))

	return &AuthService{
		credentials: credentials,
		sessions:    sessions,
		throttle:    throttle,
		metrics:     metrics,
		tracer:      otel.Tracer(infrastructure.InstrumentationName),
		logger:      logger,
	}
}

// Login checks the credentials and starts a session. clientKey identifies the
// caller for login throttling, usually the remote IP.
func (s *AuthService) Login(ctx context.Context, username, password, clientKey string) (auth.Session, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login",
		trace.WithAttributes(attribute.String("enduser.id", username)))
	defer span.End()

	if s.throttle != nil && !s.throttle.Allow(clientKey) {
		s.metrics.RecordLogin(ctx, LoginThrottled)
		span.SetStatus(codes.Error, "throttled")
		s.logger.WarnContext(ctx, "login throttled",
			slog.String("username", username),
			slog.String("client", clientKey))
		return auth.Session{}, auth.ErrThrottled
	}

	if err := s.credentials.Verify(username, password); err != nil {
		s.metrics.RecordLogin(ctx, LoginFailure)
		span.SetStatus(codes.Error, "invalid credentials")
		s.logger.WarnContext(ctx, "login failed",
			slog.String("username", username),
			slog.String("client", clientKey))
		return auth.Session{}, err
	}

	if s.throttle != nil {
		s.throttle.Reset(clientKey)
	}
	session := s.sessions.Create(username)
	s.metrics.RecordLogin(ctx, LoginSuccess)
	s.metrics.RecordSessions(ctx, 1)

	s.logger.InfoContext(ctx, "login successful", slog.String("username", username))
	return session, nil
}

// Logout ends the session. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	s.sessions.Delete(sessionID)
	s.logger.InfoContext(ctx, "logout", slog.String("session", shortID(sessionID)))
}

// Session returns the live session with the given id and extends its expiry.
func (s *AuthService) Session(ctx context.Context, sessionID string) (auth.Session, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			s.logger.ErrorContext(ctx, "session lookup failed", slog.String("error", err.Error()))
		}
		return auth.Session{}, err
	}
	return session, nil
}

// Usernames lists the configured users.
func (s *AuthService) Usernames() []string {
	return s.credentials.Usernames()
}

// ActiveSessions returns the number of live sessions.
func (s *AuthService) ActiveSessions() int {
	return s.sessions.Len()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
