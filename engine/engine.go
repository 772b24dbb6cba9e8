// Package engine implements the connection engine: the parse -> dispatch ->
// read -> write cycle driving one socket, including the send-buffer
// headroom guarantee and the resync policy on malformed input.
//
// Grounded on the teacher's Forwarder.ForwardOnce two/three-phase resumable
// state machine (hayabusa-cloud-framer/forward.go): Drive plays the same
// role — a bounded unit of work that returns early with iox.ErrWouldBlock
// when the transport isn't ready, and can be called again to resume — but
// generalized from "copy one message" to "parse one message, dispatch it
// through the handler chain, reply".
package engine

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"

	"code.hybscloud.com/iox"
	"github.com/sirupsen/logrus"

	"github.com/vt6lab/sixterm/conn"
	"github.com/vt6lab/sixterm/handler"
	"github.com/vt6lab/sixterm/wire"
)

// Handler is the subset of handler.Handler the engine dispatches through.
type Handler interface {
	Handle(msg handler.Message, c *conn.State, replyBuf []byte) (written int, ok bool)
}

// Metrics is the ambient-observability hook an Engine reports into;
// session.Metrics satisfies it. New installs a no-op implementation; the
// field is called without a nil check, so it must not be set to nil.
type Metrics interface {
	AddBytesIn(n int)
	AddBytesOut(n int)
	AddMalformed()
	AddResyncDiscard(n int)
}

type noopMetrics struct{}

func (noopMetrics) AddBytesIn(int)       {}
func (noopMetrics) AddBytesOut(int)      {}
func (noopMetrics) AddMalformed()        {}
func (noopMetrics) AddResyncDiscard(int) {}

// Engine drives one conn.State's recv/send buffers against a transport and
// a handler chain.
type Engine struct {
	State   *conn.State
	Handler Handler
	Log     *logrus.Logger
	Metrics Metrics
}

// New constructs an Engine. log may be nil, in which case logrus's
// standard logger is used.
func New(state *conn.State, h Handler, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{State: state, Handler: h, Log: log, Metrics: noopMetrics{}}
}

// Drive runs the parse/dispatch/read/write loop until no further progress
// is possible without blocking. It returns (progressed,
// iox.ErrWouldBlock) when the transport would block (the caller should wait
// for the next readiness event and call Drive again), (progressed, nil) once
// the connection has been promoted to stdio mode, (progressed, io.EOF) on a
// clean close, (progressed, io.ErrUnexpectedEOF) when the stream closes
// mid-message, or (progressed, err) on a fatal I/O error.
func (e *Engine) Drive(r io.Reader, w io.Writer) (progressed bool, err error) {
	st := e.State
	for {
		if st.IsStdio() {
			// The caller promoted this connection; the engine no longer
			// owns byte routing for it. Flush any pending reply (the
			// make-stdio acknowledgement) before handing it back.
			e.drainWriterBestEffort(w)
			return progressed, nil
		}

		msg, n, perr := wire.Parse(st.RecvBuf.Filled())
		if perr == nil {
			if !e.ensureSendHeadroom(w) {
				// Reply buffer too cramped and the writer isn't
				// draining; leave the message un-dispatched, recv
				// unchanged, and report NotReady.
				return progressed, iox.ErrWouldBlock
			}
			e.dispatch(msg)
			st.RecvBuf.Discard(n)
			progressed = true
			continue
		}

		if errors.Is(perr, wire.ErrUnexpectedEOF) {
			if st.RecvBuf.UnfilledLen() > 0 {
				// Write phase: flush pending replies before waiting on
				// the reader.
				e.drainWriterBestEffort(w)
				rn, rerr := tryRead(r, st.RecvBuf.Unfilled())
				if rn > 0 {
					st.RecvBuf.Grow(rn)
					e.Metrics.AddBytesIn(rn)
					progressed = true
					continue
				}
				if rerr == nil {
					// A reader violating the io.Reader contract
					// (0, nil) on a non-empty buffer; treat as NotReady
					// rather than spin.
					return progressed, iox.ErrWouldBlock
				}
				if rerr == io.EOF {
					if st.RecvBuf.FilledLen() > 0 {
						e.Log.WithField("conn", st.ID).Warn("half-open stream: truncated final message")
						return progressed, io.ErrUnexpectedEOF
					}
					return progressed, io.EOF
				}
				e.drainWriterBestEffort(w)
				return progressed, rerr
			}
			// recv is full with no closing brace in sight: a
			// protocol-level framing failure.
			perr = &wire.MalformedError{Reason: "message exceeds recv buffer capacity"}
		}

		var malformed *wire.MalformedError
		if errors.As(perr, &malformed) {
			discarded := e.resync()
			e.Metrics.AddMalformed()
			e.Metrics.AddResyncDiscard(len(discarded))
			e.Log.WithFields(logrus.Fields{
				"conn":      st.ID,
				"discarded": strings.ToValidUTF8(string(discarded), "�"),
				"reason":    malformed.Reason,
			}).Warn("malformed message, resynced")
			progressed = true
			continue
		}

		return progressed, perr
	}
}

// dispatch runs msg through the handler chain, falling back to a nope
// reply when the handler declines or the reply did not fit.
func (e *Engine) dispatch(msg *wire.Message) {
	st := e.State
	hmsg := toHandlerMessage(msg)
	written, ok := e.Handler.Handle(hmsg, st, st.SendBuf.Unfilled())
	if ok {
		st.SendBuf.Grow(written)
		return
	}
	n, nopeErr := formatNope(st.SendBuf.Unfilled(), msg.Module, msg.Name)
	if nopeErr != nil {
		e.Log.WithField("conn", st.ID).Warn("nope reply did not fit send buffer")
		return
	}
	st.SendBuf.Grow(n)
}

func toHandlerMessage(msg *wire.Message) handler.Message {
	hmsg := handler.Message{Module: msg.Module, Name: msg.Name}
	if len(msg.Args) > 0 {
		hmsg.Args = make([][]byte, len(msg.Args))
		for i, a := range msg.Args {
			hmsg.Args[i] = a.Bytes()
		}
	}
	return hmsg
}

func formatNope(dst []byte, module, name string) (int, error) {
	return wire.Format(dst, "core", "nope", wire.BytesArg([]byte(module)), wire.BytesArg([]byte(name)))
}

// ensureSendHeadroom guarantees conn.MinSendHeadroom free bytes in SendBuf
// before dispatch, draining to w if necessary. Returns false if draining
// stalled and headroom is still insufficient.
func (e *Engine) ensureSendHeadroom(w io.Writer) bool {
	st := e.State
	for st.SendBuf.UnfilledLen() < conn.MinSendHeadroom && st.SendBuf.FilledLen() > 0 {
		wn, werr := tryWrite(w, st.SendBuf.Filled())
		if wn > 0 {
			st.SendBuf.Discard(wn)
			e.Metrics.AddBytesOut(wn)
		}
		if werr != nil {
			return st.SendBuf.UnfilledLen() >= conn.MinSendHeadroom
		}
	}
	return st.SendBuf.UnfilledLen() >= conn.MinSendHeadroom
}

// drainWriterBestEffort flushes as much of the send buffer as will go
// without blocking; used on the fall-through write phase before each read,
// when giving up after a read error, and before returning a promoted
// connection, so a pending reply is not lost if the writer still has room.
func (e *Engine) drainWriterBestEffort(w io.Writer) {
	st := e.State
	if st.SendBuf.FilledLen() == 0 {
		return
	}
	wn, _ := tryWrite(w, st.SendBuf.Filled())
	if wn > 0 {
		st.SendBuf.Discard(wn)
		e.Metrics.AddBytesOut(wn)
	}
}

// resync discards bytes up to and including the next '{' strictly after
// offset 0, or the whole filled region if none exists. Searching strictly
// after offset 0 guarantees forward progress even when the malformed
// message itself begins with '{'; the cost is that a single stray brace
// ahead of a real message takes that message's own opening brace down
// with it.
func (e *Engine) resync() []byte {
	st := e.State
	filled := st.RecvBuf.Filled()
	idx := bytes.IndexByte(filled[1:], '{')
	var n int
	if idx < 0 {
		n = len(filled)
	} else {
		n = idx + 2 // +1 for the skipped first byte, +1 to include '{'
	}
	discarded := append([]byte(nil), filled[:n]...)
	st.RecvBuf.Discard(n)
	return discarded
}

// tryRead performs one read, normalizing net.Conn deadline timeouts to
// iox.ErrWouldBlock so Drive's caller-facing contract is uniform whether
// the transport is a real non-blocking fd or a deadline-polled net.Conn.
func tryRead(r io.Reader, p []byte) (int, error) {
	n, err := r.Read(p)
	return n, normalizeWouldBlock(err)
}

func tryWrite(w io.Writer, p []byte) (int, error) {
	n, err := w.Write(p)
	return n, normalizeWouldBlock(err)
}

func normalizeWouldBlock(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, iox.ErrWouldBlock) || errors.Is(err, iox.ErrMore) {
		return iox.ErrWouldBlock
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return iox.ErrWouldBlock
	}
	return err
}
