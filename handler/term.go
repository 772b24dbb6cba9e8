package handler

import (
	"github.com/vt6lab/sixterm/conn"
	"github.com/vt6lab/sixterm/wire"
)

// Term implements VT6's term handler: it intercepts core.make-stdio and
// serves the five term.* properties, forwarding anything else to Inner.
//
// Grounded on original_source/src/server/term_handler.rs's TermHandler<H>.
type Term struct {
	MaxMinor uint16
	Inner    Handler
}

// NewTerm constructs a Term handler wrapping inner.
func NewTerm(maxMinor uint16, inner Handler) *Term {
	return &Term{MaxMinor: maxMinor, Inner: inner}
}

func (t *Term) Handle(msg Message, c *conn.State, buf []byte) (int, bool) {
	if msg.Is("core", "make-stdio") {
		v, ok := c.IsModuleEnabled("core")
		if !ok || v.Major != 1 {
			return t.Inner.Handle(msg, c, buf)
		}
		c.ConvertToStdio()
		n, err := wire.Format(buf, "core", "is-stdio")
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return t.Inner.Handle(msg, c, buf)
}

func (t *Term) CanUseModule(name string, major uint16, c *conn.State) (uint16, bool) {
	if name == "term" && major == 1 {
		if _, ok := c.IsModuleEnabled("core"); ok {
			return t.MaxMinor, true
		}
		return 0, false
	}
	return t.Inner.CanUseModule(name, major, c)
}

func (t *Term) HandleProperty(name string, requestedValue []byte, c *conn.State, buf []byte) (int, bool) {
	switch name {
	case "term.input-echo":
		if v, ok := wire.DecodeBool(requestedValue); ok {
			c.InputEcho = v
		}
		return publishProperty(buf, name, wire.FormatBool(c.InputEcho).Bytes())
	case "term.input-immediate":
		if v, ok := wire.DecodeBool(requestedValue); ok {
			c.InputImmediate = v
		}
		return publishProperty(buf, name, wire.FormatBool(c.InputImmediate).Bytes())
	case "term.output-protected":
		if v, ok := wire.DecodeBool(requestedValue); ok {
			c.OutputProtected = v
		}
		return publishProperty(buf, name, wire.FormatBool(c.OutputProtected).Bytes())
	case "term.output-reflow":
		return publishProperty(buf, name, wire.FormatBool(c.OutputReflow).Bytes())
	case "term.output-wordwrap":
		return publishProperty(buf, name, wire.FormatBool(c.OutputWordwrap).Bytes())
	default:
		return t.Inner.HandleProperty(name, requestedValue, c, buf)
	}
}
