package daemon

import (
	"time"

	"golang.org/x/sys/unix"

	"sessiond/internal/ptysession"
)

// trackedSession pairs a live PTY session with the attachment metadata
// the owning goroutine needs: which client (if any) holds it, when it
// was last detached, and the foreground-process-group cache used to
// rate-limit FG_PROCESS_UPDATE notifications.
type trackedSession struct {
	*ptysession.Session

	attachedClient clientID
	hasClient      bool

	detachedAt  int64
	cachedFgPID int32

	savedTermios *unix.Termios

	// flowPaused mirrors whether the session's PTY reader is currently
	// paused because its attached client's outbound queue crossed the
	// high watermark. Cleared when that client's queue drains below the
	// low watermark.
	flowPaused bool
}

func (s *trackedSession) markDetached() {
	s.hasClient = false
	s.attachedClient = 0
	s.detachedAt = time.Now().Unix()
	s.clearFlowPause()
}

func (s *trackedSession) markAttached(id clientID) {
	s.hasClient = true
	s.attachedClient = id
	s.detachedAt = 0
	s.clearFlowPause()
}

// clearFlowPause resumes a paused PTY reader. Pausing only makes sense
// while a live client is both attached and congested; any attach or
// detach transition invalidates whatever congestion state produced it.
func (s *trackedSession) clearFlowPause() {
	if s.flowPaused {
		s.flowPaused = false
		s.Resume()
	}
}

// sessionStore is a keyed lookup table for live sessions, replacing the
// original's linear scan over a session vector — at the daemon's
// bounded session cap this isn't a performance necessity so much as the
// natural idiom for "find by id" in Go.
type sessionStore struct {
	byID map[string]*trackedSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{byID: make(map[string]*trackedSession)}
}

func (s *sessionStore) add(ts *trackedSession)        { s.byID[ts.ID] = ts }
func (s *sessionStore) get(id string) *trackedSession { return s.byID[id] }
func (s *sessionStore) remove(id string)              { delete(s.byID, id) }
func (s *sessionStore) len() int                      { return len(s.byID) }

func (s *sessionStore) all() []*trackedSession {
	out := make([]*trackedSession, 0, len(s.byID))
	for _, ts := range s.byID {
		out = append(out, ts)
	}
	return out
}

// findAttachedTo returns every session currently attached to the given
// client.
func (s *sessionStore) findAttachedTo(id clientID) []*trackedSession {
	var out []*trackedSession
	for _, ts := range s.byID {
		if ts.hasClient && ts.attachedClient == id {
			out = append(out, ts)
		}
	}
	return out
}
