package daemon

import (
	"syscall"
	"time"

	"go.uber.org/zap"

	"sessiond/internal/ptysession"
	"sessiond/internal/uuid"
	"sessiond/internal/wireproto"
)

// onClientFrame is the protocol dispatcher: the flat switch on message
// kind, gated by the authenticated state machine. No handler is allowed
// to let a panic escape to the owning goroutine — a malformed payload
// always yields an ERROR, never a crash.
func (d *daemon) onClientFrame(id clientID, frame wireproto.Frame) {
	c := d.clients[id]
	if c == nil {
		return
	}

	c.lastMessageAt = time.Now()
	d.lastActivity = time.Now()
	if d.met != nil {
		d.met.MessagesReceived.WithLabelValues(frame.Type.String()).Inc()
	}

	if !c.authenticated && frame.Type != wireproto.MsgHello {
		d.replyError(c, wireproto.ErrProtocolError, "must send HELLO first")
		return
	}

	switch frame.Type {
	case wireproto.MsgHello:
		d.handleHello(c, frame.Payload)
	case wireproto.MsgCreate:
		d.handleCreate(c, frame.Payload)
	case wireproto.MsgAttach:
		d.handleAttach(c, frame.Payload)
	case wireproto.MsgDetach:
		d.handleDetach(c, frame.Payload)
	case wireproto.MsgDestroy:
		d.handleDestroy(c, frame.Payload)
	case wireproto.MsgResize:
		d.handleResize(c, frame.Payload)
	case wireproto.MsgInput:
		d.handleInput(c, frame.Payload)
	case wireproto.MsgList:
		d.handleList(c, frame.Payload)
	case wireproto.MsgSendSignal:
		d.handleSendSignal(c, frame.Payload)
	case wireproto.MsgSetTermios:
		d.handleSetTermios(c, frame.Payload)
	case wireproto.MsgPing:
		d.handlePing(c, frame.Payload)
	case wireproto.MsgFgProcessQuery:
		d.handleFgProcessQuery(c, frame.Payload)
	default:
		d.replyError(c, wireproto.ErrProtocolError, "unknown message type")
	}
}

func (d *daemon) replyError(c *client, code wireproto.ErrorCode, message string) {
	if d.met != nil {
		d.met.Errors.WithLabelValues(errorCodeLabel(code)).Inc()
	}
	c.sendError(code, message)
}

func errorCodeLabel(code wireproto.ErrorCode) string {
	switch code {
	case wireproto.ErrSessionNotFound:
		return "SESSION_NOT_FOUND"
	case wireproto.ErrSessionBusy:
		return "SESSION_BUSY"
	case wireproto.ErrOutOfMemory:
		return "OUT_OF_MEMORY"
	case wireproto.ErrTooManySessions:
		return "TOO_MANY_SESSIONS"
	case wireproto.ErrProtocolError:
		return "PROTOCOL_ERROR"
	case wireproto.ErrInvalidSessionID:
		return "INVALID_SESSION_ID"
	case wireproto.ErrPermissionDenied:
		return "PERMISSION_DENIED"
	case wireproto.ErrShellNotFound:
		return "SHELL_NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

func (d *daemon) handleHello(c *client, payload []byte) {
	hello, err := wireproto.DecodeHello(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return
	}
	if hello.Version != wireproto.Version {
		d.replyError(c, wireproto.ErrProtocolError, "unsupported protocol version")
		return
	}
	if hello.ClientPID != 0 && c.peerPID != 0 && int32(hello.ClientPID) != c.peerPID {
		d.replyError(c, wireproto.ErrPermissionDenied, "client pid does not match peer credentials")
		return
	}

	c.capabilities = hello.Capabilities & wireproto.DaemonCapabilities
	c.authenticated = true

	c.send(wireproto.MsgHelloOK, wireproto.HelloOK{
		Version:      wireproto.Version,
		Capabilities: c.capabilities,
		DaemonPID:    uint32(syscall.Getpid()),
	}.Encode())
}

func (d *daemon) handleCreate(c *client, payload []byte) {
	if d.sessions.len() >= wireproto.MaxSessions {
		d.replyError(c, wireproto.ErrTooManySessions, "too many sessions")
		return
	}

	create, err := wireproto.DecodeCreate(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return
	}

	id := uuid.New()
	sess, err := ptysession.Create(ptysession.CreateParams{
		ID:           id,
		Shell:        create.Shell,
		Args:         create.Args,
		Env:          create.Env,
		Cwd:          create.Cwd,
		Rows:         create.Rows,
		Cols:         create.Cols,
		RingCapacity: d.cfg.Ring.DefaultBytes,
	})
	if err != nil {
		d.log.Warn("session create failed", zap.String("shell", create.Shell), zap.Error(err))
		d.replyError(c, wireproto.ErrShellNotFound, err.Error())
		return
	}

	ts := &trackedSession{Session: sess}
	ts.markAttached(c.id)
	d.sessions.add(ts)
	c.attached[id] = struct{}{}

	d.wg.Add(2)
	go d.pumpSessionOutput(ts)
	go d.pumpSessionExit(ts)

	if d.met != nil {
		d.met.SessionsCreated.Inc()
		d.met.SessionsActive.Inc()
	}

	c.send(wireproto.MsgCreateOK, wireproto.EncodeCreateOK(id))
}

// pumpSessionOutput and pumpSessionExit forward a session's channels
// into the daemon's single events channel, keeping the owning goroutine
// the only place session and client state is mutated.
func (d *daemon) pumpSessionOutput(ts *trackedSession) {
	defer d.wg.Done()
	for ev := range ts.Output {
		d.events <- sessionOutputEvent(ev)
	}
}

func (d *daemon) pumpSessionExit(ts *trackedSession) {
	defer d.wg.Done()
	ev := <-ts.Exit
	d.events <- sessionExitEvent(ev)
}

func (d *daemon) handleAttach(c *client, payload []byte) {
	id, err := wireproto.DecodeAttach(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return
	}
	if !uuid.Valid(id) {
		d.replyError(c, wireproto.ErrInvalidSessionID, "malformed session id")
		return
	}

	ts := d.sessions.get(id)
	if ts == nil {
		d.replyError(c, wireproto.ErrSessionNotFound, "no such session")
		return
	}
	if ts.hasClient {
		d.replyError(c, wireproto.ErrSessionBusy, "session already attached")
		return
	}

	if ts.savedTermios != nil {
		_ = ts.RestoreTermios(ts.savedTermios)
		ts.savedTermios = nil
	}

	ts.markAttached(c.id)
	c.attached[id] = struct{}{}

	rows, cols := ts.Dimensions()
	c.send(wireproto.MsgAttachOK, wireproto.AttachOK{
		SessionID:  id,
		Rows:       rows,
		Cols:       cols,
		ReplaySize: uint32(ts.Ring.Len()),
	}.Encode())
	if d.met != nil {
		d.met.ReplaySize.Observe(float64(ts.Ring.Len()))
	}

	d.sendReplay(c, ts)

	if !ts.Alive() {
		c.send(wireproto.MsgSessionExited, wireproto.EncodeSessionExited(id, ts.ExitCode()))
	}
}

// sendReplay walks the session's ring buffer as two segments, trims the
// leading UTF-8 continuation bytes, and chunks the result into
// REPLAY_DATA frames closed by one REPLAY_END.
func (d *daemon) sendReplay(c *client, ts *trackedSession) {
	seg1, seg2 := ts.Ring.ReadAll()
	if len(seg1) == 0 && len(seg2) == 0 {
		c.send(wireproto.MsgReplayEnd, wireproto.EncodeReplayEnd(ts.ID))
		return
	}

	combined := make([]byte, 0, len(seg1)+len(seg2))
	combined = append(combined, seg1...)
	combined = append(combined, seg2...)

	skip := ts.Ring.Utf8Boundary(0)
	combined = combined[skip:]

	for len(combined) > 0 {
		n := len(combined)
		if n > wireproto.ReplayChunkSize {
			n = wireproto.ReplayChunkSize
		}
		c.send(wireproto.MsgReplayData, wireproto.EncodeReplayData(ts.ID, combined[:n]))
		combined = combined[n:]
	}

	c.send(wireproto.MsgReplayEnd, wireproto.EncodeReplayEnd(ts.ID))
}

func (d *daemon) lookupFromPayload(c *client, payload []byte, decode func([]byte) (string, error)) *trackedSession {
	id, err := decode(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return nil
	}
	ts := d.sessions.get(id)
	if ts == nil {
		d.replyError(c, wireproto.ErrSessionNotFound, "no such session")
		return nil
	}
	return ts
}

func (d *daemon) handleDetach(c *client, payload []byte) {
	ts := d.lookupFromPayload(c, payload, wireproto.DecodeDetach)
	if ts == nil {
		return
	}
	d.saveTermiosFor(ts)
	ts.markDetached()
	delete(c.attached, ts.ID)
	c.send(wireproto.MsgDetachOK, nil)
}

func (d *daemon) handleDestroy(c *client, payload []byte) {
	ts := d.lookupFromPayload(c, payload, wireproto.DecodeDestroy)
	if ts == nil {
		return
	}

	if ts.hasClient {
		if owner := d.clients[ts.attachedClient]; owner != nil {
			delete(owner.attached, ts.ID)
		}
	}

	wasAlive := ts.Alive()
	ts.Destroy()
	d.sessions.remove(ts.ID)
	if d.met != nil {
		d.met.SessionsDestroyed.Inc()
		if wasAlive {
			d.met.SessionsActive.Dec()
		}
	}

	c.send(wireproto.MsgDestroyOK, nil)
}

func (d *daemon) handleResize(c *client, payload []byte) {
	resize, err := wireproto.DecodeResize(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return
	}
	ts := d.sessions.get(resize.SessionID)
	if ts == nil {
		d.replyError(c, wireproto.ErrSessionNotFound, "no such session")
		return
	}
	if err := ts.Resize(resize.Rows, resize.Cols); err != nil {
		d.log.Warn("resize failed", zap.String("session", ts.ID), zap.Error(err))
	}
}

func (d *daemon) handleInput(c *client, payload []byte) {
	input, err := wireproto.DecodeInput(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return
	}
	ts := d.sessions.get(input.SessionID)
	if ts == nil {
		d.replyError(c, wireproto.ErrSessionNotFound, "no such session")
		return
	}
	if err := ts.Write(input.Data); err != nil {
		d.log.Debug("input write failed", zap.String("session", ts.ID), zap.Error(err))
		return
	}
	if d.met != nil {
		d.met.BytesWritten.Add(float64(len(input.Data)))
	}
}

func (d *daemon) handleList(c *client, _ []byte) {
	sessions := d.sessions.all()
	entries := make([]wireproto.SessionListEntry, 0, len(sessions))
	for _, ts := range sessions {
		rows, cols := ts.Dimensions()
		entries = append(entries, wireproto.SessionListEntry{
			ID:         ts.ID,
			Alive:      ts.Alive(),
			Rows:       rows,
			Cols:       cols,
			Shell:      ts.Shell,
			Cwd:        ts.Cwd,
			CreatedAt:  ts.CreatedAt,
			DetachedAt: ts.detachedAt,
			HasClient:  ts.hasClient,
		})
	}
	c.send(wireproto.MsgListOK, wireproto.EncodeListOK(entries))
}

func (d *daemon) handleSendSignal(c *client, payload []byte) {
	sig, err := wireproto.DecodeSendSignal(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return
	}
	ts := d.sessions.get(sig.SessionID)
	if ts == nil {
		d.replyError(c, wireproto.ErrSessionNotFound, "no such session")
		return
	}
	if sig.Signal < 1 || sig.Signal >= 65 {
		d.replyError(c, wireproto.ErrProtocolError, "invalid signal number")
		return
	}
	if err := ts.SendSignal(syscall.Signal(sig.Signal)); err != nil {
		d.log.Warn("send signal failed", zap.String("session", ts.ID), zap.Error(err))
	}
	c.send(wireproto.MsgSignalOK, wireproto.EncodeSignalOK(ts.ID))
}

func (d *daemon) handleSetTermios(c *client, payload []byte) {
	set, err := wireproto.DecodeSetTermios(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return
	}
	ts := d.sessions.get(set.SessionID)
	if ts == nil {
		d.replyError(c, wireproto.ErrSessionNotFound, "no such session")
		return
	}
	if err := ts.SetTermios(ptysession.TermiosSettings{
		Iflag:       set.Iflag,
		Oflag:       set.Oflag,
		Cflag:       set.Cflag,
		Lflag:       set.Lflag,
		VERASE:      set.VERASE,
		FlowControl: set.FlowControl,
		Utf8Mode:    set.Utf8Mode,
	}); err != nil {
		d.log.Warn("set termios failed", zap.String("session", ts.ID), zap.Error(err))
	}
}

func (d *daemon) handlePing(c *client, payload []byte) {
	ts, err := wireproto.DecodePing(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return
	}
	c.send(wireproto.MsgPong, wireproto.EncodePong(ts))
}

func (d *daemon) handleFgProcessQuery(c *client, payload []byte) {
	id, err := wireproto.DecodeFgProcessQuery(payload)
	if err != nil {
		d.replyError(c, wireproto.ErrProtocolError, err.Error())
		return
	}
	ts := d.sessions.get(id)
	if ts == nil {
		d.replyError(c, wireproto.ErrSessionNotFound, "no such session")
		return
	}
	pid := ts.ForegroundPID()
	c.send(wireproto.MsgFgProcessInfo, wireproto.EncodeFgProcessInfo(id, pid, "", ""))
}
