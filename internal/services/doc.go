// Package services implements the business logic layer of Plate Pulse.
// It sits between the HTTP handlers and the dataset, insights and auth
// packages, so handlers never touch the cache or the session store directly.
//
// # Services
//
//	AuthService     login with throttling, logout, session lookup
//	DatasetService  upload ingestion, the per-session current dataset, views, export
//	HealthService   health, readiness, liveness and version reports
//
// # Dataset lifecycle
//
// An upload is fingerprinted and normalized at most once through the shared
// dataset cache. The session records the fingerprint of its current dataset
// and holds one reference on the cache entry. Uploading another file, logging
// out, or the session expiring releases that reference:
//
//	sessions := auth.NewSessionStore(size, ttl, services.SessionEvictHook(cache, metrics, logger), logger)
//	datasets := services.NewDatasetService(cache, sessions, metrics, opts, logger)
//
// # Error Handling
//
// Services return sentinel or typed errors from the domain packages
// (dataset.ErrMissingColumn, auth.ErrThrottled, ErrNoDataset, ...). The
// transport layer maps them to RFC 7807 problems; services never build HTTP
// responses.
//
// # Observability
//
// Uploads and logins run inside spans (dataset.upload, dataset.normalize,
// auth.login) and are counted on the dataset metrics instruments. Every
// service logs through an injected *slog.Logger tagged with its component.
package services
