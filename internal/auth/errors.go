package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrThrottled          = errors.New("too many login attempts")
	ErrNoUsers            = errors.New("no users configured")
)
