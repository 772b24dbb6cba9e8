package handler

import "github.com/vt6lab/sixterm/conn"

// Chain is the top of a composed handler chain. It implements Handler by
// delegating to its top-most link, and additionally implements Resolver so
// that Core (a middle link) can resolve modules/properties declared by
// layers wrapping it on the outside (see Resolver's doc comment).
type Chain struct {
	top Handler
}

// NewChain wraps an already-composed handler (e.g. Term(Core(Reject))) as
// the entry point callers dispatch through.
func NewChain(top Handler) *Chain {
	return &Chain{top: top}
}

func (c *Chain) Handle(msg Message, cn *conn.State, buf []byte) (int, bool) {
	return c.top.Handle(msg, cn, buf)
}

func (c *Chain) CanUseModule(name string, major uint16, cn *conn.State) (uint16, bool) {
	return c.top.CanUseModule(name, major, cn)
}

func (c *Chain) HandleProperty(name string, requestedValue []byte, cn *conn.State, buf []byte) (int, bool) {
	return c.top.HandleProperty(name, requestedValue, cn, buf)
}

// NewDefaultChain builds the reference composition Term(Core(Reject)),
// wiring Core's Resolver back to the full chain so
// core.have/core.want/core.set/core.get/core.pub can see modules and
// properties the Term layer adds.
func NewDefaultChain(coreMaxMinor, termMaxMinor uint16) *Chain {
	core := NewCore(coreMaxMinor, Reject{})
	term := NewTerm(termMaxMinor, core)
	chain := NewChain(term)
	core.Resolver = chain
	return chain
}
