package handler

import "github.com/vt6lab/sixterm/conn"

// Reject is the final link in the chain: it never handles anything,
// causing the engine to fall back to a nope reply.
type Reject struct{}

func (Reject) Handle(Message, *conn.State, []byte) (int, bool) { return 0, false }

func (Reject) CanUseModule(string, uint16, *conn.State) (uint16, bool) { return 0, false }

func (Reject) HandleProperty(string, []byte, *conn.State, []byte) (int, bool) { return 0, false }
