// Package session implements the connection/session multiplexer: binds one
// Unix-domain listening socket, accepts connections, assigns monotonic ids,
// hands the first connection straight to a stdio.Pump and every later one
// to an engine.Engine, and routes GUI-originated user input to the stdio
// pump.
//
// Grounded on the teacher's examples/tcp_test.go accept-loop shape and
// original_source/src/server/mod.rs's bind/accept/cleanup sequence.
package session

import (
	"github.com/sirupsen/logrus"

	"github.com/vt6lab/sixterm/conn"
	"github.com/vt6lab/sixterm/stdio"
)

// Config configures a Multiplexer. There is no environment or flag parsing
// here — that belongs to the CLI wrapper that constructs one of these —
// callers build a Config directly.
type Config struct {
	// SocketPath is the filesystem path the listening socket is bound to.
	// Created on Run, unlinked on shutdown.
	SocketPath string

	// BufferCapacity sizes each message-engine connection's recv/send
	// buffers. Defaults to conn.DefaultBufferCapacity.
	BufferCapacity int

	// StdioReadBufCapacity sizes each stdio pump's read buffer. Defaults
	// to stdio.MinReadBufferCapacity.
	StdioReadBufCapacity int

	// CoreMaxMinor/TermMaxMinor cap the minor version this server
	// advertises for the core and term modules.
	CoreMaxMinor uint16
	TermMaxMinor uint16

	// Logger receives structured log output. Defaults to
	// logrus.StandardLogger().
	Logger *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = conn.DefaultBufferCapacity
	}
	if c.StdioReadBufCapacity <= 0 {
		c.StdioReadBufCapacity = stdio.MinReadBufferCapacity
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}
