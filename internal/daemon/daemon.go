// Package daemon implements the owning goroutine that replaces the
// original event loop's poll(2) driven dispatch: one goroutine holds
// every session and client, reachable only through a single events
// channel fed by per-connection reader goroutines, per-session PTY
// reader goroutines, the listener's accept goroutine, a signal-notify
// goroutine, and a housekeeping ticker.
package daemon

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sessiond/internal/config"
	"sessiond/internal/logging"
	"sessiond/internal/metrics"
	"sessiond/internal/peercred"
	"sessiond/internal/ptysession"
	"sessiond/internal/wireproto"

	"go.uber.org/zap"
)

const readChunkSize = 8192

// Daemon owns every session and client for the process's lifetime. Its
// Run method is the single consumer of the events channel; every other
// goroutine in the process only ever produces onto it.
type daemon struct {
	cfg *config.Config
	log *logging.Logger
	met *metrics.Metrics

	listener *net.UnixListener

	events chan any

	sessions *sessionStore
	clients  map[clientID]*client
	nextID   clientID

	lastActivity time.Time
	lastFgPoll   time.Time

	shutdown bool

	wg sync.WaitGroup
}

// New constructs a daemon ready to Run against an already-bound
// listener.
func New(ln *net.UnixListener, cfg *config.Config, log *logging.Logger, met *metrics.Metrics) *daemon {
	return &daemon{
		cfg:          cfg,
		log:          log,
		met:          met,
		listener:     ln,
		events:       make(chan any, 256),
		sessions:     newSessionStore(),
		clients:      make(map[clientID]*client),
		lastActivity: time.Now(),
	}
}

// --- events produced by satellite goroutines, consumed only by Run ---

type newConnEvent struct {
	conn  net.Conn
	creds peercred.Creds
}

type clientFrameEvent struct {
	id    clientID
	frame wireproto.Frame
}

type clientReadErrEvent struct {
	id  clientID
	err error
}

type clientUncongestedEvent struct{ id clientID }

type sessionOutputEvent ptysession.OutputEvent

type sessionExitEvent ptysession.ExitEvent

type signalEvent struct{ sig os.Signal }

type tickEvent struct{}

// Run is the owning goroutine's main loop. It blocks until a shutdown
// condition is observed (SIGTERM/SIGINT, or the idle timeout with no
// sessions and no clients left), tearing everything down before it
// returns.
func (d *daemon) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGCHLD, syscall.SIGTERM, syscall.SIGINT)
	signal.Ignore(syscall.SIGPIPE)
	defer signal.Stop(sigCh)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for sig := range sigCh {
			select {
			case d.events <- signalEvent{sig: sig}:
			case <-ctx.Done():
				return
			}
		}
	}()

	d.wg.Add(1)
	go d.acceptLoop(ctx)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ticker.C:
				select {
				case d.events <- tickEvent{}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for !d.shutdown {
		select {
		case ev := <-d.events:
			d.handleEvent(ev)
		case <-ctx.Done():
			d.shutdown = true
		}
	}

	d.teardown()
	return nil
}

func (d *daemon) handleEvent(ev any) {
	switch e := ev.(type) {
	case newConnEvent:
		d.onAccept(e)
	case clientFrameEvent:
		d.onClientFrame(e.id, e.frame)
	case clientReadErrEvent:
		d.onClientDisconnect(e.id)
	case clientUncongestedEvent:
		d.onClientUncongested(e.id)
	case sessionOutputEvent:
		d.onSessionOutput(e)
	case sessionExitEvent:
		d.onSessionExit(e)
	case signalEvent:
		d.onSignal(e.sig)
	case tickEvent:
		d.runTimers()
	}
}

func (d *daemon) onSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGCHLD:
		// Exit accounting happens via each session's own waitLoop
		// goroutine and its Exit channel rather than a process-wide
		// reap here; SIGCHLD arriving is informational only.
	case syscall.SIGTERM, syscall.SIGINT:
		d.log.Info("shutdown signal received")
		d.shutdown = true
	}
}

func (d *daemon) acceptLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if d.shutdown {
				return
			}
			continue
		}

		creds, err := peercred.Authenticate(conn)
		if err != nil {
			d.log.Warn("rejecting peer", zap.Error(err))
			conn.Close()
			continue
		}

		select {
		case d.events <- newConnEvent{conn: conn, creds: creds}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (d *daemon) onAccept(e newConnEvent) {
	if d.shutdown {
		e.conn.Close()
		return
	}

	d.nextID++
	id := d.nextID
	c := newClient(id, e.conn, d)
	c.peerPID = e.creds.PID
	d.clients[id] = c
	d.lastActivity = time.Now()
	if d.met != nil {
		d.met.ClientsConnected.Inc()
	}

	d.wg.Add(1)
	go d.clientReadLoop(id, e.conn)
}

func (d *daemon) clientReadLoop(id clientID, conn net.Conn) {
	defer d.wg.Done()
	var framer wireproto.Framer
	buf := make([]byte, readChunkSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			framer.Feed(buf[:n])
			for {
				frame, ok, ferr := framer.Next()
				if ferr != nil {
					d.events <- clientReadErrEvent{id: id, err: ferr}
					return
				}
				if !ok {
					break
				}
				d.events <- clientFrameEvent{id: id, frame: frame}
			}
		}
		if err != nil {
			d.events <- clientReadErrEvent{id: id, err: err}
			return
		}
	}
}

func (d *daemon) onClientUncongested(id clientID) {
	c := d.clients[id]
	if c == nil {
		return
	}
	c.congested = false
	for _, ts := range d.sessions.findAttachedTo(id) {
		ts.clearFlowPause()
	}
}

func (d *daemon) onClientDisconnect(id clientID) {
	c := d.clients[id]
	if c == nil {
		return
	}
	d.detachAllClientSessions(id)
	c.close()
	delete(d.clients, id)
	if d.met != nil {
		d.met.ClientsConnected.Dec()
	}
}

func (d *daemon) detachAllClientSessions(id clientID) {
	for _, ts := range d.sessions.findAttachedTo(id) {
		d.saveTermiosFor(ts)
		ts.markDetached()
	}
}

func (d *daemon) saveTermiosFor(ts *trackedSession) {
	if term, err := ts.GetTermios(); err == nil {
		ts.savedTermios = term
	}
}

func (d *daemon) onSessionOutput(e sessionOutputEvent) {
	ts := d.sessions.get(e.SessionID)
	if ts == nil {
		return
	}
	if d.met != nil {
		d.met.BytesRead.Add(float64(len(e.Data)))
	}
	if !ts.hasClient {
		return
	}
	c := d.clients[ts.attachedClient]
	if c == nil {
		return
	}
	if c.send(wireproto.MsgOutput, wireproto.EncodeOutput(ts.ID, e.Data)) && !ts.flowPaused {
		ts.flowPaused = true
		ts.Pause()
	}
}

func (d *daemon) onSessionExit(e sessionExitEvent) {
	ts := d.sessions.get(e.SessionID)
	if ts == nil {
		return
	}
	if d.met != nil {
		d.met.SessionsActive.Dec()
	}
	if ts.hasClient {
		if c := d.clients[ts.attachedClient]; c != nil {
			c.send(wireproto.MsgSessionExited, wireproto.EncodeSessionExited(ts.ID, e.ExitCode))
		}
	}
}

func (d *daemon) teardown() {
	for id := range d.clients {
		d.onClientDisconnect(id)
	}
	for _, ts := range d.sessions.all() {
		ts.Destroy()
		d.sessions.remove(ts.ID)
	}
	d.listener.Close()
}
