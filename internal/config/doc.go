// Package config loads Plate Pulse configuration.
//
// # Configuration Sources
//
// Values are layered, later sources winning:
//
//	1. Default()
//	2. YAML file (config.yaml or configs/config.yaml, or an explicit path)
//	3. .env file in the working directory
//	4. Environment variables with the PLATEPULSE_ prefix
//
// # Environment Variables
//
// Nested fields join section and field names with an underscore:
//
//	PLATEPULSE_SERVER_PORT=8080
//	PLATEPULSE_LOGGING_LEVEL=debug
//	PLATEPULSE_AUTH_USERS=admin:password123,user:zomato2024
//	PLATEPULSE_UPLOAD_ENCODING=utf8
//
// # Hot Reload
//
// Watcher re-reads the YAML file when it changes and hands the new Config
// to a callback. The log level, users, upload limits and dashboard options
// are applied at runtime; everything else needs a restart.
package config
