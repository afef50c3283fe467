// Package config provides 12-factor configuration for the session daemon.
//
// All tunables are read from environment variables with sensible defaults;
// there is no configuration file format. CLI flags in cmd/sessiond take
// precedence over environment variables for the handful of values exposed
// on the command line (buffer size, foreground/debug mode).
//
// Environment Variables:
//   - SESSIOND_RING_BYTES, SESSIOND_RING_MAX_BYTES
//   - SESSIOND_ORPHAN_TIMEOUT_SECS, SESSIOND_DEAD_KEEP_SECS,
//     SESSIOND_HEARTBEAT_TIMEOUT_SECS, SESSIOND_IDLE_TIMEOUT_SECS,
//     SESSIOND_FG_POLL_SECS, SESSIOND_HOUSEKEEPING_SECS
//   - SESSIOND_LOG_LEVEL, SESSIOND_LOG_DEV
//   - SESSIOND_METRICS_ADDR, SESSIOND_METRICS_ENABLED
package config
