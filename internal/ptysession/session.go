// Package ptysession manages the lifecycle of a single PTY-backed shell:
// spawning it with a sanitized environment, tracking its scrollback in a
// ring buffer, forwarding output and exit notifications to its owner,
// and tearing it down gracefully-then-forcefully on destroy.
package ptysession

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"sessiond/internal/ring"
)

// readChunkSize is how much is read from the PTY master per Read call,
// matching the daemon's fixed-size read buffer.
const readChunkSize = 8192

// killEscalationDelay is how long Destroy waits after SIGHUP before
// escalating to SIGKILL.
const killEscalationDelay = 100 * time.Millisecond

// OutputEvent is one chunk read from a session's PTY master.
type OutputEvent struct {
	SessionID string
	Data      []byte
}

// ExitEvent reports that a session's shell process has exited.
type ExitEvent struct {
	SessionID string
	ExitCode  int32
}

// Session owns one PTY-backed shell process and its scrollback buffer.
type Session struct {
	ID    string
	Shell string
	Cwd   string

	Master *os.File
	cmd    *exec.Cmd
	Ring   *ring.Buffer

	CreatedAt int64

	mu         sync.Mutex
	rows, cols uint16
	alive      bool
	exitCode   int32

	Output chan OutputEvent
	Exit   chan ExitEvent

	exited   chan struct{}
	wipeOnce sync.Once

	pauseMu   sync.Mutex
	pauseCond *sync.Cond
	paused    bool
}

// CreateParams describes a requested session.
type CreateParams struct {
	ID           string
	Shell        string
	Args         []string
	Env          []string
	Cwd          string
	Rows, Cols   uint16
	RingCapacity int
}

// Create validates the shell path, sanitizes the environment, opens a
// PTY, and forks the shell into it. The returned Session's Output and
// Exit channels are fed by background goroutines until Destroy is
// called; the caller is responsible for draining them.
func Create(p CreateParams) (*Session, error) {
	if err := ValidateShellPath(p.Shell); err != nil {
		return nil, fmt.Errorf("validate shell: %w", err)
	}

	cwd := p.Cwd
	if cwd == "" {
		cwd = os.Getenv("HOME")
	}
	if cwd == "" {
		cwd = "/tmp"
	}

	sanitizedEnv, _ := SanitizeEnv(p.Env)

	argv0 := LoginArgv0(p.Shell)
	args := []string{argv0}
	if len(p.Args) > 0 {
		args = p.Args
	}

	cmd := exec.Command(p.Shell)
	cmd.Args = args
	cmd.Dir = cwd
	cmd.Env = sanitizedEnv
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	master, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: p.Rows, Cols: p.Cols})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	s := &Session{
		ID:        p.ID,
		Shell:     p.Shell,
		Cwd:       cwd,
		Master:    master,
		cmd:       cmd,
		Ring:      ring.New(p.RingCapacity),
		CreatedAt: time.Now().Unix(),
		rows:      p.Rows,
		cols:      p.Cols,
		alive:     true,
		Output:    make(chan OutputEvent, 64),
		Exit:      make(chan ExitEvent, 1),
		exited:    make(chan struct{}),
	}
	s.pauseCond = sync.NewCond(&s.pauseMu)

	go s.readLoop()
	go s.waitLoop()

	return s, nil
}

// readLoop copies PTY output into the ring buffer and forwards each
// chunk on Output until the master is closed or returns an error, which
// happens once the shell has exited.
func (s *Session) readLoop() {
	buf := make([]byte, readChunkSize)
	for {
		s.waitIfPaused()
		n, err := s.Master.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.Ring.Write(chunk)
			s.Output <- OutputEvent{SessionID: s.ID, Data: chunk}
		}
		if err != nil {
			return
		}
	}
}

// waitLoop blocks for the shell process to exit and reports its exit
// status, translating a fatal signal into 128+signal like a shell would.
func (s *Session) waitLoop() {
	err := s.cmd.Wait()

	var code int32
	if err == nil {
		code = 0
	} else if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				code = 128 + int32(status.Signal())
			} else {
				code = int32(status.ExitStatus())
			}
		} else {
			code = -1
		}
	} else {
		code = -1
	}

	s.mu.Lock()
	s.alive = false
	s.exitCode = code
	s.mu.Unlock()

	close(s.exited)
	s.Exit <- ExitEvent{SessionID: s.ID, ExitCode: code}
}

// Pause stops the read loop from issuing further Reads against the PTY
// master until Resume is called. This is how the owning goroutine
// applies backpressure onto a shell whose output a congested client
// can't keep up with, standing in for no longer polling the master's
// fd for readability.
func (s *Session) Pause() {
	s.pauseMu.Lock()
	s.paused = true
	s.pauseMu.Unlock()
}

// Resume re-enables a read loop paused by Pause.
func (s *Session) Resume() {
	s.pauseMu.Lock()
	s.paused = false
	s.pauseMu.Unlock()
	s.pauseCond.Broadcast()
}

func (s *Session) waitIfPaused() {
	s.pauseMu.Lock()
	for s.paused {
		s.pauseCond.Wait()
	}
	s.pauseMu.Unlock()
}

// Alive reports whether the shell process is still running.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// ExitCode returns the shell's exit code once it has exited.
func (s *Session) ExitCode() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Dimensions returns the session's current terminal size.
func (s *Session) Dimensions() (rows, cols uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// Pid returns the shell process's PID, or 0 if it never started.
func (s *Session) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Resize updates the PTY window size and notifies the shell's process
// group via SIGWINCH.
func (s *Session) Resize(rows, cols uint16) error {
	s.mu.Lock()
	s.rows, s.cols = rows, cols
	s.mu.Unlock()

	if err := pty.Setsize(s.Master, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return fmt.Errorf("setsize: %w", err)
	}

	if s.Alive() {
		_ = syscall.Kill(-s.Pid(), syscall.SIGWINCH)
	}
	return nil
}

// Write sends raw input bytes to the shell's PTY master.
func (s *Session) Write(data []byte) error {
	if !s.Alive() {
		return nil
	}
	_, err := s.Master.Write(data)
	return err
}

// SendSignal delivers a signal to the shell process.
func (s *Session) SendSignal(sig syscall.Signal) error {
	if !s.Alive() {
		return nil
	}
	return syscall.Kill(s.Pid(), sig)
}

// ForegroundPID returns the PID of the process group currently in the
// foreground of the session's PTY, or 0 if that cannot be determined.
func (s *Session) ForegroundPID() int32 {
	pgrp, err := unix.IoctlGetInt(int(s.Master.Fd()), unix.TIOCGPGRP)
	if err != nil {
		return 0
	}
	return int32(pgrp)
}

// TermiosSettings mirrors the fields a client is allowed to set via
// SET_TERMIOS: the raw c_iflag/c_oflag/c_cflag/c_lflag words, the VERASE
// character, and the flow-control and UTF-8 input-processing flags.
type TermiosSettings struct {
	Iflag, Oflag, Cflag, Lflag uint32
	VERASE                     byte
	FlowControl                bool
	Utf8Mode                   bool
}

// SetTermios applies the given terminal attributes to the session's PTY.
func (s *Session) SetTermios(t TermiosSettings) error {
	fd := int(s.Master.Fd())

	term, err := unix.IoctlGetTermios(fd, uint(termiosGetReq))
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	term.Iflag = termiosFlag(t.Iflag)
	term.Oflag = termiosFlag(t.Oflag)
	term.Cflag = termiosFlag(t.Cflag)
	term.Lflag = termiosFlag(t.Lflag)
	term.Cc[unix.VERASE] = t.VERASE

	if t.FlowControl {
		term.Iflag |= termiosFlag(unix.IXON | unix.IXOFF)
	} else {
		term.Iflag &^= termiosFlag(unix.IXON | unix.IXOFF)
	}
	if t.Utf8Mode {
		term.Iflag |= termiosFlag(iutf8Flag)
	} else {
		term.Iflag &^= termiosFlag(iutf8Flag)
	}

	if err := unix.IoctlSetTermios(fd, uint(termiosSetReq), term); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

// GetTermios saves the PTY's current termios state for later restore,
// e.g. across a detach/attach cycle.
func (s *Session) GetTermios() (*unix.Termios, error) {
	return unix.IoctlGetTermios(int(s.Master.Fd()), uint(termiosGetReq))
}

// RestoreTermios reapplies a previously saved termios state.
func (s *Session) RestoreTermios(term *unix.Termios) error {
	if term == nil {
		return nil
	}
	return unix.IoctlSetTermios(int(s.Master.Fd()), uint(termiosSetReq), term)
}

// Destroy tears the session down: SIGHUP to the process group, a short
// grace period, then SIGKILL if it hasn't exited, followed by a wipe of
// the scrollback ring buffer. Destroy is idempotent.
func (s *Session) Destroy() {
	s.Resume() // unstick a paused read loop so it observes the closed master below

	if s.Alive() && s.Pid() > 0 {
		_ = syscall.Kill(-s.Pid(), syscall.SIGHUP)

		select {
		case <-s.exited:
		case <-time.After(killEscalationDelay):
			if s.Alive() {
				_ = syscall.Kill(-s.Pid(), syscall.SIGKILL)
				<-s.exited
			}
		}
	}

	s.Master.Close()
	s.wipeOnce.Do(func() {
		s.Ring.Clear()
	})
}
