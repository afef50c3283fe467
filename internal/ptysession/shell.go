package ptysession

import (
	"fmt"
	"os"
)

// ValidateShellPath checks that path names an executable regular file.
// It mirrors the daemon's own stat-then-access check rather than relying
// on exec.LookPath, since shell paths here are always absolute and must
// not be resolved against $PATH.
func ValidateShellPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat shell %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("shell %q is a directory", path)
	}
	if info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("shell %q is not executable", path)
	}
	return nil
}

// LoginArgv0 returns the argv[0] a real login shell would be invoked
// with: the shell's base name prefixed with a dash, conventionally
// interpreted by shells as "read your login rc files."
func LoginArgv0(shellPath string) string {
	base := shellPath
	for i := len(shellPath) - 1; i >= 0; i-- {
		if shellPath[i] == '/' {
			base = shellPath[i+1:]
			break
		}
	}
	return "-" + base
}
