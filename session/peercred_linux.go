//go:build linux
// +build linux

package session

import (
	"net"

	"golang.org/x/sys/unix"
)

// peerCredentials reads SO_PEERCRED off a newly accepted Unix socket for
// diagnostic logging, in the spirit of Daedaluz-goserial's direct
// ioctl/syscall use. Returns ok=false if conn isn't backed by a raw fd the
// kernel will answer this for.
func peerCredentials(c *net.UnixConn) (pid int, uid uint32, ok bool) {
	raw, err := c.SyscallConn()
	if err != nil {
		return 0, 0, false
	}
	var cred *unix.Ucred
	var credErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil || credErr != nil || cred == nil {
		return 0, 0, false
	}
	return int(cred.Pid), cred.Uid, true
}
