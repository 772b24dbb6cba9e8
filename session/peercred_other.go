//go:build !linux
// +build !linux

package session

import "net"

// peerCredentials is a no-op outside Linux: SO_PEERCRED is a Linux-only
// ancillary mechanism (BSD/Darwin have LOCAL_PEERCRED, out of scope here).
func peerCredentials(c *net.UnixConn) (pid int, uid uint32, ok bool) {
	return 0, 0, false
}
