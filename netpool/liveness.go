//go:build darwin || linux

package netpool

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// alive polls an idle connection without blocking. An idle HTTP/1.1
// connection must not be readable: readiness means the peer closed it or
// sent bytes nobody asked for, and either way it cannot carry a request.
func alive(c net.Conn) bool {
	rc := rawConn(c)
	if rc == nil {
		return true // unsure, let the write fail
	}
	ok := true
	if err := rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 0)
		if err != nil || n == 0 {
			return
		}
		if fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			ok = false
		}
	}); err != nil {
		return false
	}
	return ok
}

func rawConn(c net.Conn) syscall.RawConn {
	if t, ok := c.(interface{ NetConn() net.Conn }); ok {
		// *tls.Conn
		c = t.NetConn()
	}
	if sc, ok := c.(syscall.Conn); ok {
		if rc, err := sc.SyscallConn(); err == nil {
			return rc
		}
	}
	return nil
}
