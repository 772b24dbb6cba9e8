package handler

import (
	"strconv"

	"github.com/vt6lab/sixterm/conn"
	"github.com/vt6lab/sixterm/wire"
)

// Resolver answers CanUseModule/HandleProperty queries against the whole
// chain, not just the handler asking. Core needs it because core.have and
// core.set/get/pub must resolve modules and properties that later,
// outer-wrapping layers (e.g. Term) declare — which Core cannot reach by
// walking inward through its own Inner field. It is wired in after the
// full chain is built; see NewDefaultChain.
type Resolver interface {
	CanUseModule(name string, major uint16, c *conn.State) (minor uint16, ok bool)
	HandleProperty(name string, requestedValue []byte, c *conn.State, replyBuf []byte) (written int, ok bool)
}

// Core implements VT6's core handler: core.have/core.want negotiation,
// generic core.set/core.get/core.pub property dispatch, and module-enable
// bookkeeping on the connection.
type Core struct {
	// MaxMinor is the highest minor version this server advertises for the
	// "core" module itself.
	MaxMinor uint16

	// Inner is the next link in the chain (conventionally Reject).
	Inner Handler

	// Resolver is injected post-construction by NewDefaultChain; see Resolver.
	Resolver Resolver
}

// NewCore constructs a Core handler wrapping inner.
func NewCore(maxMinor uint16, inner Handler) *Core {
	return &Core{MaxMinor: maxMinor, Inner: inner}
}

func (c *Core) Handle(msg Message, conn *conn.State, buf []byte) (int, bool) {
	switch {
	case msg.Is("core", "have"):
		return c.handleHave(msg, conn, buf)
	case msg.Is("core", "want"):
		return c.handleWant(msg, conn, buf)
	case msg.Is("core", "set"):
		return c.handleSet(msg, conn, buf)
	case msg.Is("core", "get"):
		return c.handleGet(msg, conn, buf)
	case msg.Is("core", "pub"):
		return c.handleSet(msg, conn, buf) // client-pushed publication behaves like set
	default:
		return c.Inner.Handle(msg, conn, buf)
	}
}

func (c *Core) handleHave(msg Message, cn *conn.State, buf []byte) (int, bool) {
	module := string(msg.Arg(0))
	major, ok := parseUint16(msg.Arg(1))
	if !ok {
		return 0, false
	}
	minor, ok := c.Resolver.CanUseModule(module, major, cn)
	if !ok {
		return 0, false
	}
	cn.EnableModule(module, wire.ModuleVersion{Major: major, Minor: minor})
	return formatCanUse(buf, module, major, minor)
}

func (c *Core) handleWant(msg Message, cn *conn.State, buf []byte) (int, bool) {
	module := string(msg.Arg(0))
	major, ok := parseUint16(msg.Arg(1))
	if !ok {
		return 0, false
	}
	minor, ok := c.Resolver.CanUseModule(module, major, cn)
	if !ok {
		return 0, false
	}
	return formatCanUse(buf, module, major, minor)
}

func (c *Core) handleSet(msg Message, cn *conn.State, buf []byte) (int, bool) {
	name := string(msg.Arg(0))
	value := msg.Arg(1) // may be nil if the message carries no value
	return c.Resolver.HandleProperty(name, value, cn, buf)
}

func (c *Core) handleGet(msg Message, cn *conn.State, buf []byte) (int, bool) {
	name := string(msg.Arg(0))
	return c.Resolver.HandleProperty(name, nil, cn, buf)
}

func (c *Core) CanUseModule(name string, major uint16, cn *conn.State) (uint16, bool) {
	if name == "core" && major == 1 {
		return c.MaxMinor, true
	}
	return c.Inner.CanUseModule(name, major, cn)
}

func (c *Core) HandleProperty(name string, requestedValue []byte, cn *conn.State, buf []byte) (int, bool) {
	return c.Inner.HandleProperty(name, requestedValue, cn, buf)
}

func formatCanUse(buf []byte, module string, major, minor uint16) (int, bool) {
	n, err := wire.Format(buf, "core", "can-use",
		wire.BytesArg([]byte(module)),
		wire.BytesArg(formatUint16(major)),
		wire.BytesArg(formatUint16(minor)),
	)
	if err != nil {
		return 0, false
	}
	return n, true
}

// publishProperty formats the generic "core.pub(name, value)" reply VT6
// uses for property publication.
func publishProperty(buf []byte, name string, value []byte) (int, bool) {
	n, err := wire.Format(buf, "core", "pub", wire.BytesArg([]byte(name)), wire.BytesArg(value))
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseUint16(b []byte) (uint16, bool) {
	if len(b) == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(string(b), 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

func formatUint16(v uint16) []byte {
	return []byte(strconv.FormatUint(uint64(v), 10))
}
