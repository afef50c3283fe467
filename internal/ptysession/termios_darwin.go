//go:build darwin

package ptysession

import "golang.org/x/sys/unix"

const (
	termiosGetReq = unix.TIOCGETA
	termiosSetReq = unix.TIOCSETA
	iutf8Flag     = unix.IUTF8
)

// termiosFlag matches the width of unix.Termios's iflag/oflag/cflag/lflag
// fields on this platform.
type termiosFlag = uint64
