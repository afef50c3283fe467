package bringup

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// CreateListenSocket binds and listens on path, first checking for and
// clearing a stale socket left behind by a daemon that crashed without
// cleaning up. The socket is created with permissions restricted to the
// owning user via a temporary umask; net.ListenUnix creates it with
// close-on-exec set, so it isn't leaked into any child shell.
func CreateListenSocket(path string, pidFilePath string) (*net.UnixListener, error) {
	if err := clearStaleSocket(path, pidFilePath); err != nil {
		return nil, err
	}

	oldMask := unix.Umask(0077)
	defer unix.Umask(oldMask)

	// net.ListenUnix creates the socket with SOCK_CLOEXEC already set, so
	// it is never leaked into a forked shell.
	addr := &net.UnixAddr{Name: path, Net: "unix"}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("bringup: listen on %q: %w", path, err)
	}

	return ln, nil
}

// clearStaleSocket removes path if it exists and the PID file shows no
// live owner; it leaves a genuinely in-use socket alone.
func clearStaleSocket(path, pidFilePath string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("bringup: stat socket %q: %w", path, err)
	}

	if pid, err := ReadPIDFile(pidFilePath); err == nil && ProcessAlive(pid) {
		return fmt.Errorf("bringup: socket %q is in use by running daemon pid %d", path, pid)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("bringup: remove stale socket %q: %w", path, err)
	}
	return nil
}

// CleanupSocketFiles removes the listening socket and PID file during
// shutdown.
func CleanupSocketFiles(socketPath, pidFilePath string) {
	_ = os.Remove(socketPath)
	_ = RemovePIDFile(pidFilePath)
}
