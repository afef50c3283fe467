// Package wireproto implements the length-prefixed binary protocol spoken
// over the session daemon's Unix-domain socket: message framing, the
// message-type and error-code vocabularies, capability bits, and the
// little-endian field encoding shared by every message payload.
package wireproto

const (
	// Version is the only protocol version this daemon speaks. A HELLO
	// carrying any other value is rejected.
	Version uint8 = 1

	// HeaderSize is the fixed 1-byte type + 4-byte little-endian length
	// prefix that precedes every message payload on the wire.
	HeaderSize = 5

	// MaxMessageSize bounds a single message payload, independent of the
	// session ring buffer or any other in-memory limit.
	MaxMessageSize = 2 * 1024 * 1024

	// ReplayChunkSize is the maximum payload carried by a single
	// REPLAY_DATA message; longer scrollback is split across multiple
	// chunks followed by one REPLAY_END.
	ReplayChunkSize = 64 * 1024

	// SessionIDLen is the exact length of a session ID as it appears on
	// the wire: a canonical UUID string with no terminating NUL.
	SessionIDLen = 36

	// DefaultRingBufferSize is the daemon's default per-session
	// scrollback capacity when no --buffer-size override is given.
	DefaultRingBufferSize = 1024 * 1024

	// MaxSessions caps how many sessions a single daemon instance will
	// hold concurrently.
	MaxSessions = 256
)

// MsgType identifies the kind of a message's payload.
type MsgType uint8

const (
	MsgCreate          MsgType = 0x01
	MsgCreateOK        MsgType = 0x02
	MsgAttach          MsgType = 0x03
	MsgAttachOK        MsgType = 0x04
	MsgReplayData      MsgType = 0x05
	MsgReplayEnd       MsgType = 0x06
	MsgDetach          MsgType = 0x07
	MsgDetachOK        MsgType = 0x08
	MsgDestroy         MsgType = 0x09
	MsgDestroyOK       MsgType = 0x0A
	MsgResize          MsgType = 0x0B
	MsgInput           MsgType = 0x0C
	MsgOutput          MsgType = 0x0D
	MsgList            MsgType = 0x0E
	MsgListOK          MsgType = 0x0F
	MsgError           MsgType = 0x10
	MsgSessionExited   MsgType = 0x11
	MsgHello           MsgType = 0x12
	MsgHelloOK         MsgType = 0x13
	MsgFgProcessQuery  MsgType = 0x14
	MsgFgProcessInfo   MsgType = 0x15
	MsgSendSignal      MsgType = 0x16
	MsgSignalOK        MsgType = 0x17
	MsgSetTermios      MsgType = 0x18
	MsgFgProcessUpdate MsgType = 0x19
	MsgPing            MsgType = 0x1A
	MsgPong            MsgType = 0x1B
)

// ErrorCode identifies the reason an ERROR message was sent.
type ErrorCode uint8

const (
	ErrSessionNotFound  ErrorCode = 0x01
	ErrSessionBusy      ErrorCode = 0x02
	ErrOutOfMemory      ErrorCode = 0x03
	ErrTooManySessions  ErrorCode = 0x04
	ErrProtocolError    ErrorCode = 0x05
	ErrInvalidSessionID ErrorCode = 0x06
	ErrPermissionDenied ErrorCode = 0x07
	ErrShellNotFound    ErrorCode = 0x08
	ErrInternalError    ErrorCode = 0x09
)

// Capability bits negotiated during HELLO. A client's requested set is
// intersected with DaemonCapabilities to produce that client's effective
// capability set.
const (
	CapPersistentTermios uint32 = 1 << 0
	CapFgProcessUpdates  uint32 = 1 << 1
	CapSignalForwarding  uint32 = 1 << 2
	CapReplayChunked     uint32 = 1 << 3

	// DaemonCapabilities is the full set this daemon supports.
	DaemonCapabilities = CapPersistentTermios | CapFgProcessUpdates |
		CapSignalForwarding | CapReplayChunked
)
