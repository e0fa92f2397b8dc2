package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"platepulse/internal/auth"
	"platepulse/internal/shared/testutil"
)

func newTestAuthService(t *testing.T) (*AuthService, *auth.SessionStore, *testutil.LogRecorder) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	credentials, err := auth.NewCredentialStore(map[string]string{
		"admin": "password123",
		"user":  "zomato2024",
	}, bcrypt.MinCost)
	require.NoError(t, err)
	sessions := auth.NewSessionStore(16, time.Hour, nil, logger)
	return NewAuthService(credentials, sessions, auth.NewThrottle(0.001, 3), nil, logger), sessions, logs
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"admin", "admin", "password123", nil},
		{"user", "user", "zomato2024", nil},
		{"wrong password", "admin", "wrong", auth.ErrInvalidCredentials},
		{"unknown user", "guest", "password123", auth.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sessions, logs := newTestAuthService(t)

			session, err := svc.Login(context.Background(), tt.username, tt.password, "10.0.0.1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, sessions.Len())
				assert.True(t, logs.ContainsMessage("login failed"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, session.Username)
			assert.NotEmpty(t, session.ID)
			assert.Equal(t, 1, svc.ActiveSessions())
			testutil.AssertLogAttr(t, logs, "username", tt.username)
		})
	}
}

func TestAuthService_LoginThrottled(t *testing.T) {
	svc, _, logs := newTestAuthService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, "admin", "wrong", "10.0.0.9")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	_, err := svc.Login(ctx, "admin", "password123", "10.0.0.9")
	assert.ErrorIs(t, err, auth.ErrThrottled)
	assert.True(t, logs.ContainsMessage("login throttled"))

	_, err = svc.Login(ctx, "admin", "password123", "10.0.0.10")
	assert.NoError(t, err, "other clients are not affected")
}

func TestAuthService_SuccessResetsThrottle(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "admin", "wrong", "10.0.0.2")
	require.Error(t, err)
	_, err = svc.Login(ctx, "admin", "password123", "10.0.0.2")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Login(ctx, "admin", "password123", "10.0.0.2")
		require.NoError(t, err, "attempt %d", i)
	}
}

func TestAuthService_SessionAndLogout(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "admin", "password123", "10.0.0.1")
	require.NoError(t, err)

	got, err := svc.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)

	svc.Logout(ctx, session.ID)
	_, err = svc.Session(ctx, session.ID)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	svc.Logout(ctx, "")
	svc.Logout(ctx, "unknown")
	assert.Equal(t, []string{"admin", "user"}, svc.Usernames())
}
