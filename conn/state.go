// Package conn holds per-connection state: the stream-mode flag, enabled
// modules, terminal properties and the recv/send buffers a single accepted
// socket carries for its lifetime.
//
// Grounded on original_source/src/server/connection_state.rs, generalized
// from its two concrete trait impls (vt6::server::Connection,
// term_handler::TermConnection) into plain Go fields and methods.
package conn

import (
	"github.com/vt6lab/sixterm/ringbuf"
	"github.com/vt6lab/sixterm/wire"
)

// StreamMode distinguishes a connection carrying framed VT6 messages from
// one promoted to raw stdio byte shuttling. The transition Message -> Stdio
// happens at most once per connection and never reverses.
type StreamMode uint8

const (
	Message StreamMode = iota
	Stdio
)

func (m StreamMode) String() string {
	if m == Stdio {
		return "stdio"
	}
	return "message"
}

// DefaultBufferCapacity is the recommended fixed buffer capacity for
// recv/send buffers: large enough to hold a full 1024-byte VT6 message plus
// framing overhead with room to spare.
const DefaultBufferCapacity = 2048

// MinSendHeadroom is the free space the engine guarantees in SendBuf before
// invoking any handler, since a handler may need room for both a reply and
// a fallback nope.
const MinSendHeadroom = 1024

// State is the per-connection state a single accepted socket carries for
// its lifetime. Zero value is not usable; construct with New.
type State struct {
	// ID is monotonically assigned from 1 upward; 0 means "not yet
	// stdio-promoted" is reserved and never assigned to a real connection.
	ID uint32

	StreamMode StreamMode

	EnabledModules map[string]wire.ModuleVersion

	// Terminal per-connection properties. Defaults: all false except
	// OutputReflow and OutputWordwrap, which default true.
	InputEcho       bool
	InputImmediate  bool
	OutputProtected bool
	OutputReflow    bool
	OutputWordwrap  bool

	RecvBuf *ringbuf.Buffer
	SendBuf *ringbuf.Buffer
}

// New constructs connection state with its default property values and
// recv/send buffers of the given capacity.
func New(id uint32, bufCapacity int) *State {
	return &State{
		ID:             id,
		StreamMode:     Message,
		EnabledModules: make(map[string]wire.ModuleVersion),
		OutputReflow:   true,
		OutputWordwrap: true,
		RecvBuf:        ringbuf.New(bufCapacity),
		SendBuf:        ringbuf.New(bufCapacity),
	}
}

// IsModuleEnabled reports whether name is enabled and returns its
// negotiated version.
func (s *State) IsModuleEnabled(name string) (wire.ModuleVersion, bool) {
	v, ok := s.EnabledModules[name]
	return v, ok
}

// EnableModule records that name is enabled at the given version.
func (s *State) EnableModule(name string, v wire.ModuleVersion) {
	s.EnabledModules[name] = v
}

// ConvertToStdio performs the one-way Message -> Stdio transition. Calling
// it more than once is a no-op (idempotent), so callers don't need to guard
// against a second core.make-stdio slipping through.
func (s *State) ConvertToStdio() {
	s.StreamMode = Stdio
}

// IsStdio reports whether the connection has been promoted to raw stdio
// mode.
func (s *State) IsStdio() bool { return s.StreamMode == Stdio }
