package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCacheStats struct {
	mock.Mock
}

func (m *mockCacheStats) GetStats() map[string]interface{} {
	args := m.Called()
	return args.Get(0).(map[string]interface{})
}

func (m *mockCacheStats) Len() int {
	return m.Called().Int(0)
}

type mockSessionCounter struct {
	mock.Mock
}

func (m *mockSessionCounter) Len() int {
	return m.Called().Int(0)
}

type mockUserLister struct {
	mock.Mock
}

func (m *mockUserLister) Usernames() []string {
	return m.Called().Get(0).([]string)
}

func TestHealthService_HealthCheck(t *testing.T) {
	hs := NewHealthService("1.2.3", "", nil, nil, nil, nil)

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.WithinDuration(t, time.Now(), status.Timestamp, time.Second)
}

func TestHealthService_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		users      []string
		wantStatus string
	}{
		{"ready", []string{"admin", "user"}, "ready"},
		{"no users", []string{}, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &mockCacheStats{}
			cache.On("GetStats").Return(map[string]interface{}{"entries": 2, "holders": 3})
			sessions := &mockSessionCounter{}
			sessions.On("Len").Return(3)
			users := &mockUserLister{}
			users.On("Usernames").Return(tt.users)

			hs := NewHealthService("1.0.0", "", cache, sessions, users, nil)
			status := hs.ReadinessCheck(context.Background())

			assert.Equal(t, tt.wantStatus, status.Status)
			require.Contains(t, status.Services, "cache")
			cacheHealth := status.Services["cache"]
			assert.Equal(t, 2, cacheHealth.Stats["entries"])
			sessionHealth := status.Services["sessions"]
			assert.Equal(t, 3, sessionHealth.Stats["active"])

			cache.AssertExpectations(t)
			sessions.AssertExpectations(t)
			users.AssertExpectations(t)
		})
	}
}

func TestHealthService_ReadinessWithoutDependencies(t *testing.T) {
	hs := NewHealthService("1.0.0", "", nil, nil, nil, nil)
	status := hs.ReadinessCheck(context.Background())

	assert.Equal(t, "not_ready", status.Status)
	for _, name := range []string{"auth", "sessions", "cache"} {
		assert.Equal(t, "not_ready", status.Services[name].Status, name)
	}
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	hs := NewHealthService("1.0.0", "2026-10-01T00:00:00Z", nil, nil, nil, nil)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	version := hs.Version()
	assert.Equal(t, "1.0.0", version["version"])
	assert.Equal(t, "2026-10-01T00:00:00Z", version["build_time"])
	assert.Contains(t, version, "go_version")

	assert.NotContains(t, NewHealthService("1.0.0", "", nil, nil, nil, nil).Version(), "build_time")
}
