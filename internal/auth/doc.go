// Package auth holds dashboard credentials, login sessions and login
// throttling.
//
// Credentials are bcrypt hashes kept in memory and replaceable at runtime
// when the users file changes. Sessions live in an expiring LRU; when a
// session ends for any reason (logout, idle expiry, capacity eviction) the
// store calls the eviction hook so the caller can release the session's
// dataset.
package auth
