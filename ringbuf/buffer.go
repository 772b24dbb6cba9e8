// Package ringbuf implements a fixed-capacity, left-compacting byte buffer:
// it never reallocates, and exposes the filled/unfilled/discard primitives
// the connection engine uses for both its recv and send sides.
//
// Grounded on the discard-and-left-shift routine in
// original_source/src/server/connection.rs's RecvBuffer, generalized to
// also serve as a send buffer (the Rust source never needed one: it wrote
// replies directly to the socket).
package ringbuf

// Buffer is a fixed-capacity byte buffer with a filled prefix and an
// unfilled suffix. It never grows past its initial capacity.
type Buffer struct {
	buf  []byte
	fill int
}

// New returns a Buffer with the given fixed capacity.
func New(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, capacity)}
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Filled returns the occupied prefix. The slice aliases the buffer's
// backing array and is only valid until the next Discard or write into
// Unfilled.
func (b *Buffer) Filled() []byte { return b.buf[:b.fill] }

// FilledLen returns len(Filled()).
func (b *Buffer) FilledLen() int { return b.fill }

// Unfilled returns the writable suffix. Callers write into it directly
// (e.g. via a non-blocking Read) and then call Grow to record how many
// bytes were written.
func (b *Buffer) Unfilled() []byte { return b.buf[b.fill:] }

// UnfilledLen returns len(Unfilled()).
func (b *Buffer) UnfilledLen() int { return len(b.buf) - b.fill }

// Grow records that n additional bytes were written into the front of
// Unfilled(), extending Filled() by n.
func (b *Buffer) Grow(n int) {
	if n < 0 || n > b.UnfilledLen() {
		panic("ringbuf: Grow out of range")
	}
	b.fill += n
}

// Discard shifts Filled()[n:] to the front of the buffer and zeroes the
// vacated tail, so that peeked slices never expose stale data. After
// Discard(n), Filled() equals the old Filled()[n:].
func (b *Buffer) Discard(n int) {
	if n < 0 || n > b.fill {
		panic("ringbuf: Discard out of range")
	}
	remaining := b.fill - n
	copy(b.buf, b.buf[n:b.fill])
	for i := remaining; i < b.fill; i++ {
		b.buf[i] = 0
	}
	b.fill = remaining
}

// Reset discards everything, equivalent to Discard(FilledLen()).
func (b *Buffer) Reset() { b.Discard(b.fill) }
