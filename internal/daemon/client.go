package daemon

import (
	"net"
	"time"

	"sessiond/internal/wireproto"
)

// clientID uniquely identifies a connection for the lifetime of the
// daemon process; unlike a UUID it never appears on the wire.
type clientID uint64

// client is the owning goroutine's view of one connected peer: its
// socket, authentication state, and the set of sessions it currently
// has attached. It is only ever touched from the owning goroutine —
// the reader and writer goroutines communicate with it exclusively
// through channels and the outboundQueue.
type client struct {
	id   clientID
	conn net.Conn

	authenticated bool
	capabilities  uint32
	peerPID       int32

	attached map[string]struct{}

	lastMessageAt time.Time
	congested     bool

	queue  *outboundQueue
	framer wireproto.Framer
}

func newClient(id clientID, conn net.Conn, d *daemon) *client {
	c := &client{
		id:            id,
		conn:          conn,
		attached:      make(map[string]struct{}),
		lastMessageAt: time.Now(),
	}
	c.queue = newOutboundQueue(func() {
		d.events <- clientUncongestedEvent{id: id}
	})
	go c.queue.run(conn)
	return c
}

// send enqueues a complete wire message for delivery and reports
// whether the client is now congested.
func (c *client) send(msgType wireproto.MsgType, payload []byte) bool {
	congested, err := c.queue.push(wireproto.EncodeMessage(msgType, payload))
	if err != nil {
		return c.congested
	}
	c.congested = congested
	return congested
}

func (c *client) sendError(code wireproto.ErrorCode, message string) {
	c.queue.push(wireproto.EncodeMessage(wireproto.MsgError, wireproto.EncodeError(code, message))) //nolint:errcheck
}

func (c *client) close() {
	c.queue.close()
	c.conn.Close()
}
