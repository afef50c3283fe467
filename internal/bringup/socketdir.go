// Package bringup handles the daemon's filesystem bring-up: resolving
// and securing its per-user runtime directory, creating the listening
// socket, and managing the PID file that enforces single-instance
// operation.
package bringup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// SocketDirName is the fixed subdirectory name under the resolved
// runtime base, suffixed with the UID when XDG_RUNTIME_DIR is unset.
const SocketDirName = "crt-plus"

// SocketDir returns this user's private runtime directory for the
// daemon's socket and PID file: $XDG_RUNTIME_DIR/crt-plus whenever
// XDG_RUNTIME_DIR is set, or a UID-suffixed directory under TMPDIR/tmp
// otherwise. The choice does not depend on the platform: macOS also
// uses XDG_RUNTIME_DIR when it is set.
func SocketDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, SocketDirName)
	}
	return filepath.Join(fallbackTmpDir(), fmt.Sprintf("%s-%d", SocketDirName, os.Getuid()))
}

func fallbackTmpDir() string {
	if dir := os.Getenv("TMPDIR"); dir != "" {
		return dir
	}
	return "/tmp"
}

// SocketPath returns the path of the daemon's listening socket.
func SocketPath() string { return filepath.Join(SocketDir(), "sessiond.sock") }

// PIDFilePath returns the path of the daemon's PID file.
func PIDFilePath() string { return filepath.Join(SocketDir(), "sessiond.pid") }

// EnsureSocketDir creates the socket directory if absent and verifies
// its ownership and permissions if it already exists, repairing the
// mode when it's too permissive. It opens the parent directory and then
// the socket directory itself with O_NOFOLLOW (which guards only the last
// component of each path) to avoid following a symlink planted by another user
// between the existence check and the open — the directory equivalent
// of a TOCTOU race.
func EnsureSocketDir() (string, error) {
	dir := SocketDir()
	parent := filepath.Dir(dir)
	base := filepath.Base(dir)

	parentFd, err := unix.Open(parent, unix.O_DIRECTORY|unix.O_NOFOLLOW, 0)
	if err != nil {
		return "", fmt.Errorf("bringup: open parent %q: %w", parent, err)
	}
	defer unix.Close(parentFd)

	if err := unix.Mkdirat(parentFd, base, 0700); err != nil && err != unix.EEXIST {
		return "", fmt.Errorf("bringup: mkdirat %q: %w", dir, err)
	}

	fd, err := unix.Openat(parentFd, base, unix.O_DIRECTORY|unix.O_NOFOLLOW, 0)
	if err != nil {
		return "", fmt.Errorf("bringup: openat %q: %w", dir, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return "", fmt.Errorf("bringup: fstat %q: %w", dir, err)
	}

	if int(st.Uid) != os.Getuid() {
		return "", fmt.Errorf("bringup: %q is owned by uid %d, not %d", dir, st.Uid, os.Getuid())
	}

	if mode := os.FileMode(st.Mode).Perm(); mode != 0700 {
		if err := unix.Fchmod(fd, 0700); err != nil {
			return "", fmt.Errorf("bringup: repair mode of %q: %w", dir, err)
		}
	}

	return dir, nil
}

// parsePIDFileContents parses a PID file's textual contents, bounding
// the result the same way the original daemon bounds it: no PID above
// eight decimal digits is considered plausible.
func parsePIDFileContents(contents string) (int, error) {
	pid, err := strconv.Atoi(contents)
	if err != nil {
		return 0, fmt.Errorf("bringup: malformed pid file contents %q: %w", contents, err)
	}
	if pid <= 0 || pid > 99999999 {
		return 0, fmt.Errorf("bringup: pid %d out of bounds", pid)
	}
	return pid, nil
}
