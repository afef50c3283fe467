// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing (the default when
//     daemonized)
//   - Development: colored console output, enabled by --debug or
//     SESSIOND_LOG_DEV (--foreground alone keeps production output)
//
// Example Usage:
//
//	logger, _ := logging.New(logging.DefaultConfig())
//	logger.Info("session created", zap.String("session", id))
//	logger.Error("exec failed", zap.Error(err))
package logging
