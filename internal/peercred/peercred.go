// Package peercred authenticates the peer of a Unix-domain socket
// connection by its effective UID and PID, enforcing the daemon's
// same-user-only connection policy.
package peercred

import (
	"fmt"
	"net"
	"os"
)

// Creds holds the authenticated identity of a socket peer.
type Creds struct {
	UID uint32
	PID int32
}

// Authenticate extracts the peer's credentials from conn, which must be
// a *net.UnixConn, and rejects it if its UID differs from this
// process's real UID (os.Getuid). Same-UID is the daemon's entire trust model:
// there is no further authorization beyond "this is the same user."
func Authenticate(conn net.Conn) (Creds, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return Creds{}, fmt.Errorf("peercred: not a unix socket connection")
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return Creds{}, fmt.Errorf("peercred: syscall conn: %w", err)
	}

	var creds Creds
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		creds, credErr = getsockoptPeerCreds(int(fd))
	}); err != nil {
		return Creds{}, fmt.Errorf("peercred: control: %w", err)
	}
	if credErr != nil {
		return Creds{}, fmt.Errorf("peercred: getsockopt: %w", credErr)
	}

	expected := uint32(os.Getuid())
	if creds.UID != expected {
		return Creds{}, fmt.Errorf("peercred: peer uid %d does not match daemon uid %d", creds.UID, expected)
	}

	return creds, nil
}
