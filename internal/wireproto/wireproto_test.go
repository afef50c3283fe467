package wireproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramerYieldsFrameOnceComplete(t *testing.T) {
	var f Framer
	msg := EncodeMessage(MsgPing, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	f.Feed(msg[:3])
	_, ok, err := f.Next()
	require.NoError(t, err)
	require.False(t, ok)

	f.Feed(msg[3:])
	frame, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, MsgPing, frame.Type)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, frame.Payload)
}

func TestFramerHandlesMultipleFramesInOneFeed(t *testing.T) {
	var f Framer
	first := EncodeMessage(MsgPing, []byte("aaaa"))
	second := EncodeMessage(MsgPong, []byte("bb"))
	f.Feed(append(first, second...))

	frame1, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, MsgPing, frame1.Type)

	frame2, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, MsgPong, frame2.Type)

	_, ok, err = f.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFramerRejectsOversizedPayload(t *testing.T) {
	var f Framer
	header := make([]byte, HeaderSize)
	EncodeHeader(header, MsgInput, MaxMessageSize+1)
	f.Feed(header)

	_, ok, err := f.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestEncodeErrorRoundTrip(t *testing.T) {
	payload := EncodeError(ErrSessionBusy, "session already attached")
	assert.Equal(t, byte(ErrSessionBusy), payload[0])

	msg, n, ok := readString(payload, 1)
	require.True(t, ok)
	assert.Equal(t, "session already attached", msg)
	assert.Equal(t, len(payload), 1+n)
}

func TestHelloRoundTrip(t *testing.T) {
	buf := make([]byte, 9)
	buf[0] = Version
	putU32(buf[1:], CapPersistentTermios|CapSignalForwarding)
	putU32(buf[5:], 4242)

	hello, err := DecodeHello(buf)
	require.NoError(t, err)
	assert.Equal(t, Version, hello.Version)
	assert.Equal(t, CapPersistentTermios|CapSignalForwarding, hello.Capabilities)
	assert.Equal(t, uint32(4242), hello.ClientPID)
}

func TestDecodeHelloRejectsShortPayload(t *testing.T) {
	_, err := DecodeHello([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestHelloOKEncode(t *testing.T) {
	buf := HelloOK{Version: Version, Capabilities: CapReplayChunked, DaemonPID: 99}.Encode()
	require.Len(t, buf, 9)
	assert.Equal(t, Version, buf[0])
	assert.Equal(t, CapReplayChunked, getU32(buf[1:]))
	assert.Equal(t, uint32(99), getU32(buf[5:]))
}

func TestCreateRoundTrip(t *testing.T) {
	shell := "/bin/zsh"
	args := []string{"-l"}
	env := []string{"FOO=bar", "TERM=xterm"}
	cwd := "/home/user"

	buf := writeString(nil, shell)
	argc := make([]byte, 2)
	putU16(argc, uint16(len(args)))
	buf = append(buf, argc...)
	for _, a := range args {
		buf = writeString(buf, a)
	}
	envc := make([]byte, 2)
	putU16(envc, uint16(len(env)))
	buf = append(buf, envc...)
	for _, e := range env {
		buf = writeString(buf, e)
	}
	buf = writeString(buf, cwd)
	dims := make([]byte, 4)
	putU16(dims, 24)
	putU16(dims[2:], 80)
	buf = append(buf, dims...)

	create, err := DecodeCreate(buf)
	require.NoError(t, err)
	assert.Equal(t, shell, create.Shell)
	assert.Equal(t, args, create.Args)
	assert.Equal(t, env, create.Env)
	assert.Equal(t, cwd, create.Cwd)
	assert.Equal(t, uint16(24), create.Rows)
	assert.Equal(t, uint16(80), create.Cols)
}

func TestDecodeCreateRejectsTruncatedArgs(t *testing.T) {
	buf := writeString(nil, "/bin/sh")
	argc := make([]byte, 2)
	putU16(argc, 3) // claims 3 args, supplies none
	buf = append(buf, argc...)

	_, err := DecodeCreate(buf)
	assert.Error(t, err)
}

func TestAttachOKEncodeLayout(t *testing.T) {
	id := "550e8400-e29b-41d4-a716-446655440000"
	buf := AttachOK{SessionID: id, Rows: 40, Cols: 120, ReplaySize: 1024}.Encode()

	require.Len(t, buf, SessionIDLen+8)
	assert.Equal(t, id, string(buf[:SessionIDLen]))
	assert.Equal(t, uint16(40), getU16(buf[SessionIDLen:]))
	assert.Equal(t, uint16(120), getU16(buf[SessionIDLen+2:]))
	assert.Equal(t, uint32(1024), getU32(buf[SessionIDLen+4:]))
}

func TestDecodeAttachDetachDestroyExtractSessionID(t *testing.T) {
	id := "550e8400-e29b-41d4-a716-446655440000"
	payload := []byte(id)

	got, err := DecodeAttach(payload)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = DecodeDetach(payload)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = DecodeDestroy(payload)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestDecodeSessionScopedMessageRejectsShortPayload(t *testing.T) {
	_, err := DecodeAttach([]byte("too-short"))
	assert.Error(t, err)
}

func TestResizeRoundTrip(t *testing.T) {
	id := "550e8400-e29b-41d4-a716-446655440000"
	buf := make([]byte, SessionIDLen+4)
	copy(buf, id)
	putU16(buf[SessionIDLen:], 50)
	putU16(buf[SessionIDLen+2:], 200)

	resize, err := DecodeResize(buf)
	require.NoError(t, err)
	assert.Equal(t, id, resize.SessionID)
	assert.Equal(t, uint16(50), resize.Rows)
	assert.Equal(t, uint16(200), resize.Cols)
}

func TestInputAliasesPayloadWithoutCopy(t *testing.T) {
	id := "550e8400-e29b-41d4-a716-446655440000"
	buf := append([]byte(id), []byte("hello")...)

	input, err := DecodeInput(buf)
	require.NoError(t, err)
	assert.Equal(t, id, input.SessionID)
	assert.Equal(t, "hello", string(input.Data))

	buf[SessionIDLen] = 'X'
	assert.Equal(t, byte('X'), input.Data[0])
}

func TestEncodeOutputAndSessionExited(t *testing.T) {
	id := "550e8400-e29b-41d4-a716-446655440000"

	out := EncodeOutput(id, []byte("abc"))
	assert.Equal(t, id, string(out[:SessionIDLen]))
	assert.Equal(t, "abc", string(out[SessionIDLen:]))

	exited := EncodeSessionExited(id, -1)
	assert.Equal(t, int32(-1), int32(getU32(exited[SessionIDLen:])))
}

func TestEncodeListOKRoundTripsMultipleEntries(t *testing.T) {
	entries := []SessionListEntry{
		{
			ID: "550e8400-e29b-41d4-a716-446655440000", Alive: true,
			Rows: 24, Cols: 80, Shell: "/bin/sh", Cwd: "/tmp",
			CreatedAt: 1000, DetachedAt: 0, HasClient: true,
		},
		{
			ID: "11111111-1111-1111-1111-111111111111", Alive: false,
			Rows: 40, Cols: 120, Shell: "/bin/zsh", Cwd: "/home/user",
			CreatedAt: 2000, DetachedAt: 2500, HasClient: false,
		},
	}

	buf := EncodeListOK(entries)
	count := getU16(buf)
	require.Equal(t, uint16(2), count)

	pos := 2
	for _, want := range entries {
		id := string(buf[pos : pos+SessionIDLen])
		assert.Equal(t, want.ID, id)
		pos += SessionIDLen

		alive := buf[pos] == 1
		assert.Equal(t, want.Alive, alive)
		pos++

		rows := getU16(buf[pos:])
		pos += 2
		cols := getU16(buf[pos:])
		pos += 2
		assert.Equal(t, want.Rows, rows)
		assert.Equal(t, want.Cols, cols)

		shell, n, ok := readString(buf, pos)
		require.True(t, ok)
		assert.Equal(t, want.Shell, shell)
		pos += n

		cwd, n, ok := readString(buf, pos)
		require.True(t, ok)
		assert.Equal(t, want.Cwd, cwd)
		pos += n

		createdAt := int64(getU64(buf[pos:]))
		pos += 8
		detachedAt := int64(getU64(buf[pos:]))
		pos += 8
		assert.Equal(t, want.CreatedAt, createdAt)
		assert.Equal(t, want.DetachedAt, detachedAt)

		hasClient := buf[pos] == 1
		pos++
		assert.Equal(t, want.HasClient, hasClient)
	}
	assert.Equal(t, len(buf), pos)
}

func TestSendSignalRoundTrip(t *testing.T) {
	id := "550e8400-e29b-41d4-a716-446655440000"
	buf := make([]byte, SessionIDLen+4)
	copy(buf, id)
	putU32(buf[SessionIDLen:], uint32(int32(15)))

	sig, err := DecodeSendSignal(buf)
	require.NoError(t, err)
	assert.Equal(t, id, sig.SessionID)
	assert.Equal(t, int32(15), sig.Signal)
}

func TestSetTermiosRoundTrip(t *testing.T) {
	id := "550e8400-e29b-41d4-a716-446655440000"
	buf := make([]byte, SessionIDLen+19)
	copy(buf, id)
	p := SessionIDLen
	putU32(buf[p:], 1)
	putU32(buf[p+4:], 2)
	putU32(buf[p+8:], 3)
	putU32(buf[p+12:], 4)
	buf[p+16] = 8
	buf[p+17] = 1
	buf[p+18] = 0

	set, err := DecodeSetTermios(buf)
	require.NoError(t, err)
	assert.Equal(t, id, set.SessionID)
	assert.Equal(t, uint32(1), set.Iflag)
	assert.Equal(t, uint32(2), set.Oflag)
	assert.Equal(t, uint32(3), set.Cflag)
	assert.Equal(t, uint32(4), set.Lflag)
	assert.Equal(t, byte(8), set.VERASE)
	assert.True(t, set.FlowControl)
	assert.False(t, set.Utf8Mode)
}

func TestPingPongRoundTrip(t *testing.T) {
	ts, err := DecodePing(encodeTestPing(123456789))
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789), ts)

	pong := EncodePong(ts)
	assert.Equal(t, uint64(123456789), getU64(pong))
}

func encodeTestPing(ts uint64) []byte {
	buf := make([]byte, 8)
	putU64(buf, ts)
	return buf
}

func TestFgProcessInfoRoundTrip(t *testing.T) {
	id := "550e8400-e29b-41d4-a716-446655440000"
	buf := EncodeFgProcessInfo(id, 4242, "vim", "/home/user")

	assert.Equal(t, id, string(buf[:SessionIDLen]))
	assert.Equal(t, int32(4242), int32(getU32(buf[SessionIDLen:])))

	name, n, ok := readString(buf, SessionIDLen+4)
	require.True(t, ok)
	assert.Equal(t, "vim", name)
	cwd, _, ok := readString(buf, SessionIDLen+4+n)
	require.True(t, ok)
	assert.Equal(t, "/home/user", cwd)
}

func TestMsgTypeStringCoversKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "CREATE", MsgCreate.String())
	assert.Equal(t, "PONG", MsgPong.String())
	assert.Equal(t, "UNKNOWN(0xff)", MsgType(0xFF).String())
}
