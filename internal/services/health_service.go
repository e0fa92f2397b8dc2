package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// CacheStats reports on the dataset cache.
type CacheStats interface {
	GetStats() map[string]interface{}
	Len() int
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// UserLister lists the configured users.
type UserLister interface {
	Usernames() []string
}

// HealthService answers the health, readiness and liveness probes.
type HealthService struct {
	version   string
	buildTime string
	cache     CacheStats
	sessions  SessionCounter
	users     UserLister
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the body of every probe response.
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth is one component's entry in a readiness response.
type ServiceHealth struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Stats   map[string]interface{} `json:"stats,omitempty"`
}

const (
	statusReady    = "ready"
	statusNotReady = "not_ready"
)

func notReady(msg string) ServiceHealth {
	return ServiceHealth{Status: statusNotReady, Message: msg}
}

// NewHealthService wires the probes. A nil dependency makes readiness
// report that component as not ready.
func NewHealthService(version, buildTime string, cache CacheStats, sessions SessionCounter, users UserLister, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		cache:     cache,
		sessions:  sessions,
		users:     users,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

func (hs *HealthService) status(s string) HealthStatus {
	return HealthStatus{Status: s, Timestamp: time.Now(), Version: hs.version}
}

// HealthCheck always answers "ok" while the process serves requests.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return hs.status("ok")
}

// ReadinessCheck is ready when users are configured and the session store
// and dataset cache exist.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	st := hs.status(statusReady)
	st.Services = map[string]ServiceHealth{
		"auth":     hs.authHealth(),
		"sessions": hs.sessionHealth(),
		"cache":    hs.cacheHealth(),
	}
	for name, sh := range st.Services {
		if sh.Status == statusReady {
			continue
		}
		st.Status = statusNotReady
		hs.logger.WarnContext(ctx, "component not ready",
			slog.String("component", name),
			slog.String("reason", sh.Message))
	}
	return st
}

func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	st := hs.status("alive")
	st.Runtime = map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	return st
}

// Version reports the build and runtime the server runs on.
func (hs *HealthService) Version() map[string]interface{} {
	v := map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
		"uptime":     time.Since(hs.startTime).Round(time.Second).String(),
	}
	if hs.buildTime != "" {
		v["build_time"] = hs.buildTime
	}
	return v
}

func (hs *HealthService) authHealth() ServiceHealth {
	if hs.users == nil {
		return notReady("credential store not initialized")
	}
	n := len(hs.users.Usernames())
	if n == 0 {
		return notReady("no users configured")
	}
	return ServiceHealth{Status: statusReady, Message: fmt.Sprintf("%d users configured", n)}
}

func (hs *HealthService) sessionHealth() ServiceHealth {
	if hs.sessions == nil {
		return notReady("session store not initialized")
	}
	return ServiceHealth{Status: statusReady, Stats: map[string]interface{}{"active": hs.sessions.Len()}}
}

func (hs *HealthService) cacheHealth() ServiceHealth {
	if hs.cache == nil {
		return notReady("dataset cache not initialized")
	}
	return ServiceHealth{Status: statusReady, Stats: hs.cache.GetStats()}
}
