//go:build darwin

package peercred

import "golang.org/x/sys/unix"

// getsockoptPeerCreds reads LOCAL_PEERCRED for the connecting UID and
// LOCAL_PEERPID for its PID, since Darwin splits what Linux reports in
// a single SO_PEERCRED call across two socket options.
func getsockoptPeerCreds(fd int) (Creds, error) {
	xucred, err := unix.GetsockoptXucred(fd, unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
	if err != nil {
		return Creds{}, err
	}

	pid, err := unix.GetsockoptInt(fd, unix.SOL_LOCAL, unix.LOCAL_PEERPID)
	if err != nil {
		return Creds{}, err
	}

	return Creds{UID: xucred.Uid, PID: int32(pid)}, nil
}
