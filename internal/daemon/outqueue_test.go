package daemon

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushReportsCongestedAtHighWatermark(t *testing.T) {
	q := newOutboundQueue(nil)

	congested, err := q.push(make([]byte, outboundHighWatermark+1))
	require.NoError(t, err)
	assert.True(t, congested)
}

func TestPushBelowWatermarkIsNotCongested(t *testing.T) {
	q := newOutboundQueue(nil)

	congested, err := q.push(make([]byte, 1024))
	require.NoError(t, err)
	assert.False(t, congested)
}

func TestPushAfterCloseFails(t *testing.T) {
	q := newOutboundQueue(nil)
	q.close()

	_, err := q.push([]byte("x"))
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestRunDrainsQueueAndClearsCongestionBelowLowWatermark(t *testing.T) {
	cleared := make(chan struct{}, 1)
	q := newOutboundQueue(func() { cleared <- struct{}{} })

	server, client := net.Pipe()
	go q.run(server)
	t.Cleanup(func() { client.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := client.Read(buf); err != nil {
				return
			}
		}
	}()

	congested, err := q.push(make([]byte, outboundHighWatermark+1))
	require.NoError(t, err)
	require.True(t, congested)

	select {
	case <-cleared:
	case <-time.After(2 * time.Second):
		t.Fatal("congestion never cleared once the queue drained")
	}

	q.close()
}

func TestRunExitsOnceClosedAndEmpty(t *testing.T) {
	q := newOutboundQueue(nil)
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })

	done := make(chan struct{})
	go func() {
		q.run(server)
		close(done)
	}()

	q.close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not exit after close")
	}
}
