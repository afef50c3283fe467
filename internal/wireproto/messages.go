package wireproto

import "fmt"

// Hello is the client's opening handshake payload:
// [1B version][4B requested capabilities][4B client pid].
type Hello struct {
	Version      uint8
	Capabilities uint32
	ClientPID    uint32
}

// DecodeHello parses a HELLO payload.
func DecodeHello(payload []byte) (Hello, error) {
	if len(payload) < 9 {
		return Hello{}, &ErrShortBuffer{Field: "HELLO"}
	}
	return Hello{
		Version:      payload[0],
		Capabilities: getU32(payload[1:]),
		ClientPID:    getU32(payload[5:]),
	}, nil
}

// HelloOK is the daemon's handshake response:
// [1B version][4B negotiated capabilities][4B daemon pid].
type HelloOK struct {
	Version      uint8
	Capabilities uint32
	DaemonPID    uint32
}

// Encode serializes a HELLO_OK payload.
func (h HelloOK) Encode() []byte {
	buf := make([]byte, 9)
	buf[0] = h.Version
	putU32(buf[1:], h.Capabilities)
	putU32(buf[5:], h.DaemonPID)
	return buf
}

// Create is the CREATE request payload:
// [str shell][u16 argc][argc * str][u16 envc][envc * str][str cwd][u16 rows][u16 cols].
type Create struct {
	Shell string
	Args  []string
	Env   []string
	Cwd   string
	Rows  uint16
	Cols  uint16
}

// DecodeCreate parses a CREATE payload.
func DecodeCreate(payload []byte) (Create, error) {
	var c Create
	pos := 0

	shell, n, ok := readString(payload, pos)
	if !ok {
		return c, &ErrShortBuffer{Field: "CREATE.shell"}
	}
	c.Shell = shell
	pos += n

	if pos+2 > len(payload) {
		return c, &ErrShortBuffer{Field: "CREATE.argc"}
	}
	argc := int(getU16(payload[pos:]))
	pos += 2
	for i := 0; i < argc; i++ {
		s, n, ok := readString(payload, pos)
		if !ok {
			return c, &ErrShortBuffer{Field: "CREATE.args"}
		}
		c.Args = append(c.Args, s)
		pos += n
	}

	if pos+2 > len(payload) {
		return c, &ErrShortBuffer{Field: "CREATE.envc"}
	}
	envc := int(getU16(payload[pos:]))
	pos += 2
	for i := 0; i < envc; i++ {
		s, n, ok := readString(payload, pos)
		if !ok {
			return c, &ErrShortBuffer{Field: "CREATE.env"}
		}
		c.Env = append(c.Env, s)
		pos += n
	}

	cwd, n, ok := readString(payload, pos)
	if !ok {
		return c, &ErrShortBuffer{Field: "CREATE.cwd"}
	}
	c.Cwd = cwd
	pos += n

	if pos+4 > len(payload) {
		return c, &ErrShortBuffer{Field: "CREATE.dimensions"}
	}
	c.Rows = getU16(payload[pos:])
	c.Cols = getU16(payload[pos+2:])

	return c, nil
}

// EncodeCreateOK builds the CREATE_OK payload: [36B session id].
func EncodeCreateOK(sessionID string) []byte {
	return []byte(sessionID)
}

// AttachOK is the ATTACH_OK response payload:
// [36B session id][2B rows][2B cols][4B replay size].
type AttachOK struct {
	SessionID  string
	Rows, Cols uint16
	ReplaySize uint32
}

// Encode serializes an ATTACH_OK payload.
func (a AttachOK) Encode() []byte {
	buf := make([]byte, SessionIDLen+2+2+4)
	copy(buf, a.SessionID)
	putU16(buf[SessionIDLen:], a.Rows)
	putU16(buf[SessionIDLen+2:], a.Cols)
	putU32(buf[SessionIDLen+4:], a.ReplaySize)
	return buf
}

// decodeSessionID reads the fixed 36-byte session ID prefix any
// session-scoped message payload begins with.
func decodeSessionID(payload []byte, msgName string) (string, error) {
	if len(payload) < SessionIDLen {
		return "", &ErrShortBuffer{Field: msgName}
	}
	return string(payload[:SessionIDLen]), nil
}

// DecodeAttach parses an ATTACH payload: [36B session id].
func DecodeAttach(payload []byte) (string, error) { return decodeSessionID(payload, "ATTACH") }

// DecodeDetach parses a DETACH payload: [36B session id].
func DecodeDetach(payload []byte) (string, error) { return decodeSessionID(payload, "DETACH") }

// DecodeDestroy parses a DESTROY payload: [36B session id].
func DecodeDestroy(payload []byte) (string, error) { return decodeSessionID(payload, "DESTROY") }

// EncodeReplayData builds a REPLAY_DATA chunk: [36B session id][data...].
func EncodeReplayData(sessionID string, chunk []byte) []byte {
	buf := make([]byte, SessionIDLen+len(chunk))
	copy(buf, sessionID)
	copy(buf[SessionIDLen:], chunk)
	return buf
}

// EncodeReplayEnd builds a REPLAY_END payload: [36B session id].
func EncodeReplayEnd(sessionID string) []byte { return []byte(sessionID) }

// Resize is the RESIZE request payload: [36B session id][2B rows][2B cols].
type Resize struct {
	SessionID  string
	Rows, Cols uint16
}

// DecodeResize parses a RESIZE payload.
func DecodeResize(payload []byte) (Resize, error) {
	id, err := decodeSessionID(payload, "RESIZE")
	if err != nil {
		return Resize{}, err
	}
	if len(payload) < SessionIDLen+4 {
		return Resize{}, &ErrShortBuffer{Field: "RESIZE.dimensions"}
	}
	return Resize{
		SessionID: id,
		Rows:      getU16(payload[SessionIDLen:]),
		Cols:      getU16(payload[SessionIDLen+2:]),
	}, nil
}

// Input is the INPUT payload: [36B session id][raw bytes...]. Data
// aliases the original payload slice.
type Input struct {
	SessionID string
	Data      []byte
}

// DecodeInput parses an INPUT payload.
func DecodeInput(payload []byte) (Input, error) {
	id, err := decodeSessionID(payload, "INPUT")
	if err != nil {
		return Input{}, err
	}
	return Input{SessionID: id, Data: payload[SessionIDLen:]}, nil
}

// EncodeOutput builds an OUTPUT payload: [36B session id][data...].
func EncodeOutput(sessionID string, data []byte) []byte {
	buf := make([]byte, SessionIDLen+len(data))
	copy(buf, sessionID)
	copy(buf[SessionIDLen:], data)
	return buf
}

// EncodeSessionExited builds a SESSION_EXITED payload:
// [36B session id][4B exit code].
func EncodeSessionExited(sessionID string, exitCode int32) []byte {
	buf := make([]byte, SessionIDLen+4)
	copy(buf, sessionID)
	putU32(buf[SessionIDLen:], uint32(exitCode))
	return buf
}

// SessionListEntry describes one session in a LIST_OK response.
type SessionListEntry struct {
	ID         string
	Alive      bool
	Rows, Cols uint16
	Shell      string
	Cwd        string
	CreatedAt  int64
	DetachedAt int64
	HasClient  bool
}

// EncodeListOK builds the LIST_OK payload:
// [2B count] then per entry:
// [36B id][1B alive][2B rows][2B cols][str shell][str cwd][8B created_at][8B detached_at][1B has_client].
func EncodeListOK(entries []SessionListEntry) []byte {
	buf := make([]byte, 2)
	putU16(buf, uint16(len(entries)))

	for _, e := range entries {
		head := make([]byte, SessionIDLen+1+2+2)
		copy(head, e.ID)
		idx := SessionIDLen
		if e.Alive {
			head[idx] = 1
		}
		idx++
		putU16(head[idx:], e.Rows)
		idx += 2
		putU16(head[idx:], e.Cols)

		buf = append(buf, head...)
		buf = writeString(buf, e.Shell)
		buf = writeString(buf, e.Cwd)

		tail := make([]byte, 8+8+1)
		putU64(tail, uint64(e.CreatedAt))
		putU64(tail[8:], uint64(e.DetachedAt))
		if e.HasClient {
			tail[16] = 1
		}
		buf = append(buf, tail...)
	}

	return buf
}

// SendSignal is the SEND_SIGNAL payload: [36B session id][4B signal].
type SendSignal struct {
	SessionID string
	Signal    int32
}

// DecodeSendSignal parses a SEND_SIGNAL payload.
func DecodeSendSignal(payload []byte) (SendSignal, error) {
	id, err := decodeSessionID(payload, "SEND_SIGNAL")
	if err != nil {
		return SendSignal{}, err
	}
	if len(payload) < SessionIDLen+4 {
		return SendSignal{}, &ErrShortBuffer{Field: "SEND_SIGNAL.signal"}
	}
	return SendSignal{SessionID: id, Signal: int32(getU32(payload[SessionIDLen:]))}, nil
}

// EncodeSignalOK builds the SIGNAL_OK payload: [36B session id].
func EncodeSignalOK(sessionID string) []byte { return []byte(sessionID) }

// SetTermios is the SET_TERMIOS payload:
// [36B session id][4B iflag][4B oflag][4B cflag][4B lflag]
// [1B VERASE][1B flow control][1B utf8 mode].
type SetTermios struct {
	SessionID                  string
	Iflag, Oflag, Cflag, Lflag uint32
	VERASE                     byte
	FlowControl                bool
	Utf8Mode                   bool
}

// DecodeSetTermios parses a SET_TERMIOS payload.
func DecodeSetTermios(payload []byte) (SetTermios, error) {
	id, err := decodeSessionID(payload, "SET_TERMIOS")
	if err != nil {
		return SetTermios{}, err
	}
	if len(payload) < SessionIDLen+19 {
		return SetTermios{}, &ErrShortBuffer{Field: "SET_TERMIOS.fields"}
	}
	p := SessionIDLen
	t := SetTermios{
		SessionID: id,
		Iflag:     getU32(payload[p:]),
		Oflag:     getU32(payload[p+4:]),
		Cflag:     getU32(payload[p+8:]),
		Lflag:     getU32(payload[p+12:]),
	}
	p += 16
	t.VERASE = payload[p]
	t.FlowControl = payload[p+1] != 0
	t.Utf8Mode = payload[p+2] != 0
	return t, nil
}

// DecodePing parses the PING payload: [8B timestamp].
func DecodePing(payload []byte) (uint64, error) {
	if len(payload) < 8 {
		return 0, &ErrShortBuffer{Field: "PING"}
	}
	return getU64(payload), nil
}

// EncodePong builds the PONG payload, echoing back the PING timestamp.
func EncodePong(timestamp uint64) []byte {
	buf := make([]byte, 8)
	putU64(buf, timestamp)
	return buf
}

// DecodeFgProcessQuery parses an FG_PROCESS_QUERY payload: [36B session id].
func DecodeFgProcessQuery(payload []byte) (string, error) {
	return decodeSessionID(payload, "FG_PROCESS_QUERY")
}

// EncodeFgProcessInfo builds an FG_PROCESS_INFO payload:
// [36B session id][4B pid][str name][str cwd].
func EncodeFgProcessInfo(sessionID string, pid int32, name, cwd string) []byte {
	buf := make([]byte, SessionIDLen+4)
	copy(buf, sessionID)
	putU32(buf[SessionIDLen:], uint32(pid))
	buf = writeString(buf, name)
	buf = writeString(buf, cwd)
	return buf
}

// EncodeFgProcessUpdate builds an FG_PROCESS_UPDATE payload:
// [36B session id][4B pid][str name][str cwd].
func EncodeFgProcessUpdate(sessionID string, pid int32, name, cwd string) []byte {
	buf := make([]byte, SessionIDLen+4)
	copy(buf, sessionID)
	putU32(buf[SessionIDLen:], uint32(pid))
	buf = writeString(buf, name)
	buf = writeString(buf, cwd)
	return buf
}

// String implements fmt.Stringer for diagnostic logging of message types.
func (t MsgType) String() string {
	switch t {
	case MsgCreate:
		return "CREATE"
	case MsgCreateOK:
		return "CREATE_OK"
	case MsgAttach:
		return "ATTACH"
	case MsgAttachOK:
		return "ATTACH_OK"
	case MsgReplayData:
		return "REPLAY_DATA"
	case MsgReplayEnd:
		return "REPLAY_END"
	case MsgDetach:
		return "DETACH"
	case MsgDetachOK:
		return "DETACH_OK"
	case MsgDestroy:
		return "DESTROY"
	case MsgDestroyOK:
		return "DESTROY_OK"
	case MsgResize:
		return "RESIZE"
	case MsgInput:
		return "INPUT"
	case MsgOutput:
		return "OUTPUT"
	case MsgList:
		return "LIST"
	case MsgListOK:
		return "LIST_OK"
	case MsgError:
		return "ERROR"
	case MsgSessionExited:
		return "SESSION_EXITED"
	case MsgHello:
		return "HELLO"
	case MsgHelloOK:
		return "HELLO_OK"
	case MsgFgProcessQuery:
		return "FG_PROCESS_QUERY"
	case MsgFgProcessInfo:
		return "FG_PROCESS_INFO"
	case MsgSendSignal:
		return "SEND_SIGNAL"
	case MsgSignalOK:
		return "SIGNAL_OK"
	case MsgSetTermios:
		return "SET_TERMIOS"
	case MsgFgProcessUpdate:
		return "FG_PROCESS_UPDATE"
	case MsgPing:
		return "PING"
	case MsgPong:
		return "PONG"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(t))
	}
}
