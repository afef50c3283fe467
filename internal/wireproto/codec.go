package wireproto

import (
	"encoding/binary"
	"fmt"
)

// putU16 writes val little-endian into dst[0:2].
func putU16(dst []byte, val uint16) { binary.LittleEndian.PutUint16(dst, val) }

// putU32 writes val little-endian into dst[0:4].
func putU32(dst []byte, val uint32) { binary.LittleEndian.PutUint32(dst, val) }

// putU64 writes val little-endian into dst[0:8].
func putU64(dst []byte, val uint64) { binary.LittleEndian.PutUint64(dst, val) }

func getU16(src []byte) uint16 { return binary.LittleEndian.Uint16(src) }
func getU32(src []byte) uint32 { return binary.LittleEndian.Uint32(src) }
func getU64(src []byte) uint64 { return binary.LittleEndian.Uint64(src) }

// Header is the fixed 5-byte prefix of every message.
type Header struct {
	Type       MsgType
	PayloadLen uint32
}

// EncodeHeader writes a 5-byte header into dst, which must be at least
// HeaderSize long.
func EncodeHeader(dst []byte, msgType MsgType, payloadLen uint32) {
	dst[0] = byte(msgType)
	putU32(dst[1:], payloadLen)
}

// DecodeHeader parses a 5-byte header from src.
func DecodeHeader(src []byte) Header {
	return Header{Type: MsgType(src[0]), PayloadLen: getU32(src[1:])}
}

// EncodeMessage returns a complete wire frame (header + payload) for the
// given message type and payload.
func EncodeMessage(msgType MsgType, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	EncodeHeader(buf, msgType, uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// writeString appends a 2-byte-length-prefixed string to dst.
func writeString(dst []byte, s string) []byte {
	lenBuf := make([]byte, 2)
	putU16(lenBuf, uint16(len(s)))
	dst = append(dst, lenBuf...)
	dst = append(dst, s...)
	return dst
}

// readString reads a 2-byte-length-prefixed string from src starting at
// offset, returning the string, the number of bytes consumed, and
// whether there was enough data.
func readString(src []byte, offset int) (s string, consumed int, ok bool) {
	if offset+2 > len(src) {
		return "", 0, false
	}
	n := int(getU16(src[offset:]))
	if offset+2+n > len(src) {
		return "", 0, false
	}
	return string(src[offset+2 : offset+2+n]), 2 + n, true
}

// ErrShortBuffer is returned by decoders when the payload does not carry
// enough bytes for the field being read.
type ErrShortBuffer struct {
	Field string
}

func (e *ErrShortBuffer) Error() string {
	return fmt.Sprintf("wireproto: payload too short reading %s", e.Field)
}
