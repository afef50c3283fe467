//go:build linux

package peercred

import "golang.org/x/sys/unix"

// getsockoptPeerCreds reads SO_PEERCRED on Linux, which carries the
// connecting process's UID, GID, and PID as reported by the kernel at
// connect time.
func getsockoptPeerCreds(fd int) (Creds, error) {
	ucred, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return Creds{}, err
	}
	return Creds{UID: ucred.Uid, PID: ucred.Pid}, nil
}
