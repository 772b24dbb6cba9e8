// Package handler implements the VT6 handler chain: an ordered composition
// of dispatchers, each free to handle a message, declare module support, or
// serve a property get/set.
//
// Grounded on original_source/src/server/term_handler.rs's TermHandler<H>
// wrapper (generic over an inner vt6s::Handler), reworked from a Rust trait
// object / generic chain into a Go interface plus explicit composition —
// an interface plus a small fixed set of variants, avoiding a deep virtual
// hierarchy.
package handler

import "github.com/vt6lab/sixterm/conn"

// Handler is the capability set every link in the chain implements.
type Handler interface {
	// Handle attempts to process msg. On success it writes the reply into
	// replyBuf and returns the number of bytes written. false means "not
	// handled by this handler" (try the next one) or "reply did not fit".
	Handle(msg Message, c *conn.State, replyBuf []byte) (written int, ok bool)

	// CanUseModule declares support for (name, majorVersion) on this
	// connection, returning the minor version the server will advertise.
	CanUseModule(name string, majorVersion uint16, c *conn.State) (minor uint16, ok bool)

	// HandleProperty gets or sets a named property. requestedValue is
	// non-nil for "set then publish", nil for "publish current value".
	// ok is false if this handler does not know the property.
	HandleProperty(name string, requestedValue []byte, c *conn.State, replyBuf []byte) (written int, ok bool)
}

// Message is the subset of wire.Message the handler chain needs, kept
// independent of the wire package's Arg representation so handlers can be
// unit-tested with plain literals.
type Message struct {
	Module string
	Name   string
	Args   [][]byte
}

// Is reports whether the message's type matches the given module.name pair.
func (m Message) Is(module, name string) bool {
	return m.Module == module && m.Name == name
}

// Arg returns the i'th positional argument, or nil if out of range.
func (m Message) Arg(i int) []byte {
	if i < 0 || i >= len(m.Args) {
		return nil
	}
	return m.Args[i]
}
