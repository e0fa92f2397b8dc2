// Package app wires Plate Pulse together and runs its HTTP server.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, config.yaml, .env, PLATEPULSE_* environment)
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Create the dataset cache and the session store; ending a session
//	   releases the dataset it referenced
//	4. Build the auth, dataset and health services
//	5. Mount handlers behind the middleware chain
//
// # Usage
//
//	application, err := app.NewApplication("")
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run stops on context cancellation, SIGINT or SIGTERM. In-flight requests
// get Server.ShutdownTimeout to finish, every session is purged and the
// telemetry providers are flushed.
//
// # Hot Reload
//
// When a config file was found it is watched while serving. Log level,
// users and dashboard view options are applied live; everything else needs
// a restart.
package app
