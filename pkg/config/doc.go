// Package config loads loginapp configuration from environment variables.
//
// Configuration structs carry cleanenv tags (env, env-default) and are read
// in one call:
//
//	cfg, err := config.Load()
//	if err != nil {
//		slog.Error("Invalid configuration", "err", err)
//		os.Exit(-1)
//	}
//
// Durations accept both ISO 8601 ("PT15M") and Go syntax ("15m").
//
// Admin roles are configured with ADMIN_ROLES, a comma-separated list that
// defaults to "admin". IsAdminRole compares case-insensitively.
package config
