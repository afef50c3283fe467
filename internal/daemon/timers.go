package daemon

import (
	"time"

	"sessiond/internal/wireproto"
)

// runTimers is invoked once per housekeeping tick (every second) and
// performs every time-driven sweep: orphan and dead-session reaping,
// stale-client eviction, foreground-process polling, and the final
// idle-shutdown check. Every interval is read from d.cfg.Timeout rather
// than fixed constants so integration tests can shrink them instead of
// waiting out the daemon's real-world schedule.
func (d *daemon) runTimers() {
	now := time.Now()
	t := d.cfg.Timeout

	orphanTimeout := time.Duration(t.OrphanSecs) * time.Second
	deadKeepTimeout := time.Duration(t.DeadKeepSecs) * time.Second
	heartbeatTimeout := time.Duration(t.HeartbeatSecs) * time.Second
	idleTimeout := time.Duration(t.IdleSecs) * time.Second

	for _, ts := range d.sessions.all() {
		if !ts.hasClient && ts.detachedAt > 0 {
			age := now.Sub(time.Unix(ts.detachedAt, 0))
			if age > orphanTimeout {
				d.destroySession(ts)
				continue
			}
			if !ts.Alive() && age > deadKeepTimeout {
				d.destroySession(ts)
				continue
			}
		}
	}

	for id, c := range d.clients {
		if now.Sub(c.lastMessageAt) > heartbeatTimeout {
			d.onClientDisconnect(id)
		}
	}

	d.pollForegroundProcesses(now)

	if d.sessions.len() == 0 && len(d.clients) == 0 && now.Sub(d.lastActivity) > idleTimeout {
		d.shutdown = true
	}
}

func (d *daemon) destroySession(ts *trackedSession) {
	wasAlive := ts.Alive()
	ts.Destroy()
	d.sessions.remove(ts.ID)
	if d.met != nil {
		d.met.SessionsDestroyed.Inc()
		if wasAlive {
			d.met.SessionsActive.Dec()
		}
	}
}

// pollForegroundProcesses rate-limits itself to once every
// d.cfg.Timeout.FgPollSecs and notifies an attached client only when a
// session's foreground process group actually changed since the last
// poll.
func (d *daemon) pollForegroundProcesses(now time.Time) {
	fgPollInterval := time.Duration(d.cfg.Timeout.FgPollSecs) * time.Second
	if now.Sub(d.lastFgPoll) < fgPollInterval {
		return
	}
	d.lastFgPoll = now

	for _, ts := range d.sessions.all() {
		if !ts.Alive() || !ts.hasClient {
			continue
		}
		pid := ts.ForegroundPID()
		if pid == ts.cachedFgPID {
			continue
		}
		ts.cachedFgPID = pid

		c := d.clients[ts.attachedClient]
		if c == nil {
			continue
		}
		c.send(wireproto.MsgFgProcessUpdate, wireproto.EncodeFgProcessUpdate(ts.ID, pid, "", ""))
	}
}
