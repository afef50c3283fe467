package wireproto

import "fmt"

// ErrMessageTooLarge is returned by Framer.Next when a header declares a
// payload bigger than MaxMessageSize. The caller should treat this as a
// fatal protocol violation and disconnect.
var ErrMessageTooLarge = fmt.Errorf("wireproto: message exceeds MaxMessageSize")

// Frame is one fully decoded message pulled off a connection.
type Frame struct {
	Type    MsgType
	Payload []byte
}

// Framer accumulates bytes read from a connection and yields complete
// Frames as they become available, mirroring the daemon's recv_buf plus
// try_parse_message loop. A Framer is owned by a single reader goroutine
// per connection; it is not safe for concurrent use.
type Framer struct {
	buf []byte
}

// Feed appends newly read bytes to the framer's internal buffer.
func (f *Framer) Feed(data []byte) {
	f.buf = append(f.buf, data...)
}

// Next extracts the next complete frame from the buffered bytes, if one
// is available. It returns ok=false with a nil error when more bytes are
// needed, and a non-nil error when the buffered header declares an
// oversized payload — a condition from which the connection cannot
// recover.
func (f *Framer) Next() (frame Frame, ok bool, err error) {
	if len(f.buf) < HeaderSize {
		return Frame{}, false, nil
	}

	hdr := DecodeHeader(f.buf)
	if hdr.PayloadLen > MaxMessageSize {
		return Frame{}, false, ErrMessageTooLarge
	}

	total := HeaderSize + int(hdr.PayloadLen)
	if len(f.buf) < total {
		return Frame{}, false, nil
	}

	payload := make([]byte, hdr.PayloadLen)
	copy(payload, f.buf[HeaderSize:total])
	f.buf = f.buf[total:]

	return Frame{Type: hdr.Type, Payload: payload}, true, nil
}

// EncodeError builds an ERROR message payload: [1B code][2B msg len][msg].
func EncodeError(code ErrorCode, message string) []byte {
	payload := make([]byte, 0, 1+2+len(message))
	payload = append(payload, byte(code))
	payload = writeString(payload, message)
	return payload
}
