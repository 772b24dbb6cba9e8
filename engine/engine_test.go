package engine_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"code.hybscloud.com/iox"

	"github.com/vt6lab/sixterm/conn"
	"github.com/vt6lab/sixterm/engine"
	"github.com/vt6lab/sixterm/handler"
	"github.com/vt6lab/sixterm/ringbuf"
	"github.com/vt6lab/sixterm/wire"
)

func newEngine() (*engine.Engine, *conn.State) {
	st := conn.New(1, conn.DefaultBufferCapacity)
	e := engine.New(st, handler.NewDefaultChain(0, 0), nil)
	return e, st
}

func TestDriveDispatchesOneMessageAndReplies(t *testing.T) {
	e, _ := newEngine()
	var out bytes.Buffer

	msg := []byte("{core.have 4:core 1:1}")
	progressed, err := e.Drive(bytes.NewReader(msg), &out)
	if !progressed {
		t.Fatalf("expected progress")
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}

	reply, n, perr := wire.Parse(out.Bytes())
	if perr != nil {
		t.Fatalf("reply did not parse: %v", perr)
	}
	if n != out.Len() {
		t.Fatalf("reply left %d trailing bytes", out.Len()-n)
	}
	if !reply.Is("core", "can-use") {
		t.Fatalf("reply = %s.%s, want core.can-use", reply.Module, reply.Name)
	}
}

func TestDriveResyncConsumesThroughTheNextBrace(t *testing.T) {
	// The resync policy discards up to and including the next '{'
	// strictly after offset 0. A single stray '{' ahead of
	// the real message therefore takes the real message's own opening
	// brace down with it: this one is unrecoverable, but resync still
	// guarantees forward progress and the stream drains to EOF rather
	// than hanging.
	e, st := newEngine()
	var out bytes.Buffer

	input := []byte("garbage{core.have 4:core 1:1}")
	progressed, err := e.Drive(bytes.NewReader(input), &out)
	if !progressed {
		t.Fatalf("expected resync to make progress")
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if _, ok := st.IsModuleEnabled("core"); ok {
		t.Fatalf("message's own opening brace was consumed by resync; it must not have been dispatched")
	}
}

func TestDriveResyncRecoversWhenABraceSurvives(t *testing.T) {
	// Two adjacent stray braces: consuming through the first still
	// leaves the second as the real message's opening brace.
	e, st := newEngine()
	var out bytes.Buffer

	input := []byte("xx{{core.have 4:core 1:1}")
	_, err := e.Drive(bytes.NewReader(input), &out)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if _, ok := st.IsModuleEnabled("core"); !ok {
		t.Fatalf("expected core module enabled after resync recovered the message")
	}
	if out.Len() == 0 {
		t.Fatalf("expected a reply to have been written after resync recovered the message")
	}
}

func TestDriveTruncatedMessageIsUnexpectedEOF(t *testing.T) {
	e, _ := newEngine()
	var out bytes.Buffer

	// Well-formed prefix, stream closes mid-message.
	input := []byte("{core.have 4:core")
	_, err := e.Drive(bytes.NewReader(input), &out)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestDriveStopsRoutingBytesAfterStdioPromotion(t *testing.T) {
	e, st := newEngine()
	var out bytes.Buffer

	have := []byte("{core.have 4:core 1:1}")
	if _, err := e.Drive(bytes.NewReader(have), &out); !errors.Is(err, io.EOF) {
		t.Fatalf("setup: %v", err)
	}
	out.Reset()

	stdio := []byte("{core.make-stdio}")
	if _, err := e.Drive(bytes.NewReader(stdio), &out); err != nil {
		t.Fatalf("promotion: %v, want nil", err)
	}
	if !st.IsStdio() {
		t.Fatalf("expected connection promoted to stdio")
	}
	out.Reset()

	// Once promoted, Drive must not touch recv/send buffers for this
	// connection at all: the engine no longer owns byte routing.
	progressed, err := e.Drive(bytes.NewReader([]byte("whatever")), &out)
	if progressed || err != nil {
		t.Fatalf("Drive(progressed=%v, err=%v) after promotion, want (false, nil)", progressed, err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no bytes written after promotion")
	}
}

type stallWriter struct{}

func (stallWriter) Write(p []byte) (int, error) { return 0, errors.New("simulated stalled writer") }

func TestDriveReturnsNotReadyWhenSendHeadroomStalled(t *testing.T) {
	st := &conn.State{
		ID:             1,
		EnabledModules: make(map[string]wire.ModuleVersion),
		RecvBuf:        ringbuf.New(conn.DefaultBufferCapacity),
		SendBuf:        ringbuf.New(conn.MinSendHeadroom),
	}
	// Pre-fill the send buffer so no headroom is free, then plug in a
	// writer that never drains. The message is already in the recv
	// buffer, so Drive has nothing to read and nothing it can dispatch.
	st.SendBuf.Grow(1)

	e := engine.New(st, handler.NewDefaultChain(0, 0), nil)
	msg := []byte("{core.have 4:core 1:1}")
	st.RecvBuf.Grow(copy(st.RecvBuf.Unfilled(), msg))
	progressed, err := e.Drive(bytes.NewReader(nil), stallWriter{})
	if progressed {
		t.Fatalf("expected no progress: message must stay un-dispatched")
	}
	if !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("err = %v, want iox.ErrWouldBlock", err)
	}
	if st.RecvBuf.FilledLen() == 0 {
		t.Fatalf("message should remain in recv buffer, undispatched")
	}
}
