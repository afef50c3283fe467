package ptysession

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := Create(CreateParams{
		ID:           "11111111-1111-1111-1111-111111111111",
		Shell:        "/bin/sh",
		Cwd:          "/tmp",
		Rows:         24,
		Cols:         80,
		RingCapacity: 4096,
	})
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	return s
}

func TestCreateStartsAliveSession(t *testing.T) {
	s := newTestSession(t)
	require.True(t, s.Alive())
	require.Greater(t, s.Pid(), 0)
}

func TestWriteAndReadEcho(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.Write([]byte("echo hello-session\n")))

	deadline := time.After(2 * time.Second)
	var seen bool
	for !seen {
		select {
		case ev := <-s.Output:
			if len(ev.Data) > 0 {
				seen = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for PTY output")
		}
	}
}

func TestResizeUpdatesDimensions(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Resize(40, 120))

	rows, cols := s.Dimensions()
	require.Equal(t, uint16(40), rows)
	require.Equal(t, uint16(120), cols)
}

func TestDestroyStopsProcess(t *testing.T) {
	s := newTestSession(t)
	s.Destroy()
	require.False(t, s.Alive())
}

func TestPauseStopsOutputResumeContinues(t *testing.T) {
	s := newTestSession(t)

	s.Pause()

	require.NoError(t, s.Write([]byte(
		"for i in 1 2 3 4 5; do echo paused-output; sleep 0.05; done; echo resumed-marker\n")))

	select {
	case ev := <-s.Output:
		t.Fatalf("unexpected output while paused: %q", ev.Data)
	case <-time.After(300 * time.Millisecond):
	}

	s.Resume()

	deadline := time.After(2 * time.Second)
	var collected []byte
	for !strings.Contains(string(collected), "resumed-marker") {
		select {
		case ev := <-s.Output:
			collected = append(collected, ev.Data...)
		case <-deadline:
			t.Fatalf("timed out waiting for output after resume, collected %q", collected)
		}
	}
}

func TestDestroyUnblocksPausedReadLoop(t *testing.T) {
	s := newTestSession(t)
	s.Pause()

	done := make(chan struct{})
	go func() {
		s.Destroy()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Destroy did not return; paused read loop likely stuck")
	}
	require.False(t, s.Alive())
}

func TestWaitLoopReportsExit(t *testing.T) {
	s, err := Create(CreateParams{
		ID:           "22222222-2222-2222-2222-222222222222",
		Shell:        "/bin/sh",
		Args:         []string{"sh", "-c", "exit 3"},
		Cwd:          "/tmp",
		Rows:         24,
		Cols:         80,
		RingCapacity: 4096,
	})
	require.NoError(t, err)
	defer s.Destroy()

	select {
	case ev := <-s.Exit:
		require.Equal(t, int32(3), ev.ExitCode)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for exit event")
	}
}
