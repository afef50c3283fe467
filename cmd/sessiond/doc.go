// Package main is the entry point for sessiond, a per-user PTY session
// daemon.
//
// sessiond listens on a Unix-domain socket under the user's runtime
// directory and multiplexes any number of client connections onto any
// number of PTY-backed shell sessions, keeping each session's
// scrollback alive across client disconnects.
//
// Usage:
//
//	sessiond [--foreground|-f] [--debug] [--buffer-size N]
//	sessiond --version
//	sessiond --shutdown
//
// By default sessiond daemonizes: it forks into the background,
// detaches from its controlling terminal, and redirects stdio to
// /dev/null. --foreground skips this for local testing and container
// deployments where the process is already supervised.
//
// Signals:
//   - SIGCHLD: reap exited shells (handled per-session, not process-wide)
//   - SIGTERM, SIGINT: graceful shutdown
//   - SIGPIPE: ignored
package main
