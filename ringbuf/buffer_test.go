package ringbuf_test

import (
	"bytes"
	"testing"

	"github.com/vt6lab/sixterm/ringbuf"
)

func TestGrowAndFilled(t *testing.T) {
	b := ringbuf.New(8)
	n := copy(b.Unfilled(), "abcd")
	b.Grow(n)
	if !bytes.Equal(b.Filled(), []byte("abcd")) {
		t.Fatalf("Filled() = %q", b.Filled())
	}
	if b.UnfilledLen() != 4 {
		t.Fatalf("UnfilledLen() = %d, want 4", b.UnfilledLen())
	}
}

func TestDiscardIsLeftShift(t *testing.T) {
	b := ringbuf.New(8)
	n := copy(b.Unfilled(), "abcdef")
	b.Grow(n)

	old := append([]byte(nil), b.Filled()...)
	b.Discard(2)

	want := old[2:]
	if !bytes.Equal(b.Filled(), want) {
		t.Fatalf("Filled() after Discard(2) = %q, want %q", b.Filled(), want)
	}
	// tail bytes beyond the new fill must be zeroed.
	for i := b.FilledLen(); i < b.Cap(); i++ {
		if b.Unfilled()[i-b.FilledLen()] != 0 {
			t.Fatalf("byte at %d not zeroed after Discard", i)
		}
	}
}

func TestDiscardAllResetsToEmpty(t *testing.T) {
	b := ringbuf.New(4)
	n := copy(b.Unfilled(), "ab")
	b.Grow(n)
	b.Discard(b.FilledLen())
	if b.FilledLen() != 0 {
		t.Fatalf("FilledLen() = %d, want 0", b.FilledLen())
	}
	if b.UnfilledLen() != b.Cap() {
		t.Fatalf("UnfilledLen() = %d, want %d", b.UnfilledLen(), b.Cap())
	}
}

func TestResetEquivalence(t *testing.T) {
	a := ringbuf.New(8)
	n := copy(a.Unfilled(), "xyz")
	a.Grow(n)
	b := ringbuf.New(8)
	copy(b.Unfilled(), "xyz")
	b.Grow(n)

	a.Reset()
	b.Discard(b.FilledLen())
	if !bytes.Equal(a.Filled(), b.Filled()) {
		t.Fatalf("Reset() and Discard(FilledLen()) diverge")
	}
}

func TestGrowOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on over-grow")
		}
	}()
	b := ringbuf.New(4)
	b.Grow(5)
}

func TestDiscardOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on over-discard")
		}
	}()
	b := ringbuf.New(4)
	b.Discard(1)
}
