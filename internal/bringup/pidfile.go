package bringup

import (
	"fmt"
	"os"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// ProcessAlive reports whether pid names a running process, using
// kill(pid, 0) to probe without sending a real signal.
func ProcessAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// ReadPIDFile reads and validates the PID recorded at path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("bringup: read pid file: %w", err)
	}
	return parsePIDFileContents(string(trimTrailingNewline(data)))
}

func trimTrailingNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// WritePIDFile exclusively creates the PID file at path containing pid.
// If the file already exists, it checks whether the recorded process is
// still alive: a live owner means another daemon instance is running
// and WritePIDFile fails; a dead owner means a stale file from a
// previous crash, which is removed before retrying once.
func WritePIDFile(path string, pid int) error {
	err := writePIDFileExclusive(path, pid)
	if err == nil {
		return nil
	}
	if err != unix.EEXIST {
		return fmt.Errorf("bringup: write pid file: %w", err)
	}

	existing, readErr := ReadPIDFile(path)
	if readErr == nil && ProcessAlive(existing) {
		return fmt.Errorf("bringup: daemon already running with pid %d", existing)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("bringup: remove stale pid file: %w", err)
	}

	if err := writePIDFileExclusive(path, pid); err != nil {
		return fmt.Errorf("bringup: write pid file after removing stale one: %w", err)
	}
	return nil
}

func writePIDFileExclusive(path string, pid int) error {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	_, err = unix.Write(fd, []byte(strconv.Itoa(pid)+"\n"))
	return err
}

// RemovePIDFile removes the PID file at path, ignoring a not-exist
// error since cleanup may run more than once.
func RemovePIDFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("bringup: remove pid file: %w", err)
	}
	return nil
}
