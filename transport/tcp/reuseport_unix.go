//go:build unix

package tcp

import (
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func reusePort(network, address string, rc syscall.RawConn) error {
	var sockErr error
	err := rc.Control(func(fd uintptr) {
		if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return errors.Wrap(err, "accessing raw socket")
	}
	return errors.Wrap(sockErr, "setting socket reuse options")
}

func isAddrInUse(err error) bool { return errors.Is(err, unix.EADDRINUSE) }
