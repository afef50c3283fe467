package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// daemonize detaches sessiond from its controlling terminal by
// re-executing itself as a session leader with stdio redirected to
// /dev/null, then returns so the caller can exit the foreground
// process. The Go runtime cannot safely fork(2) without an immediate
// exec — its goroutine scheduler and OS threads don't survive a bare
// fork — so this stands in for the original double-fork: one exec into
// a new session takes the place of both forks, and Setsid covers the
// "child becomes session leader, detached from any controlling
// terminal" step that the intermediate fork existed to guarantee.
func daemonize() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	args := append(childArgs(os.Args[1:]), "--foreground")

	cmd := exec.Command(self, args...)
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.Dir = "/"
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached process: %w", err)
	}

	return cmd.Process.Release()
}

// childArgs strips any flag the child must not receive twice: it will
// always be launched with --foreground appended, regardless of whether
// the parent was invoked with -f.
func childArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--foreground" || a == "-f" {
			continue
		}
		out = append(out, a)
	}
	return out
}
