// Package stdio implements the stdio pump: once a connection is promoted
// out of the VT6 message protocol (either because it is the first accepted
// connection, or via a successful core.make-stdio), the engine stops
// parsing framed messages on it and this package takes over, shuttling raw
// bytes between the child process and the document's trailing section.
//
// Grounded on the teacher's read/write phase split (forward.go) — a
// pre-allocated read buffer and a poll-read/poll-write pair — generalized
// from "copy bytes between two streams" to "copy bytes into a document
// section, and copy a growable line queue out".
package stdio

import (
	"io"

	"github.com/vt6lab/sixterm/document"
	"github.com/vt6lab/sixterm/notify"
)

// MinReadBufferCapacity is the minimum read buffer size a Pump will use,
// large enough to absorb a burst of child output between two drains.
const MinReadBufferCapacity = 1024

// Metrics is the ambient-observability hook a Pump reports into;
// session.Metrics satisfies it. A Pump with no Metrics set is a silent no-op.
type Metrics interface {
	AddBytesIn(n int)
	AddBytesOut(n int)
}

// Pump shuttles bytes between one stdio-promoted connection and the
// document's trailing section. ReadReady and WriteReady each touch
// disjoint fields (readBuf+doc vs. writeBuf), so it's safe to drive them
// from two different goroutines — one blocked reading, one forwarding
// GUI-originated input — as long as each method itself is never called
// concurrently with itself.
type Pump struct {
	readBuf  []byte
	writeBuf []byte

	doc      *document.Document
	notifier notify.Notifier
	metrics  Metrics
}

// New constructs a Pump over doc, waking notifier on every successful
// read. readBufCap is raised to MinReadBufferCapacity if smaller.
func New(doc *document.Document, notifier notify.Notifier, readBufCap int) *Pump {
	if readBufCap < MinReadBufferCapacity {
		readBufCap = MinReadBufferCapacity
	}
	return &Pump{
		readBuf:  make([]byte, readBufCap),
		doc:      doc,
		notifier: notifier,
	}
}

// SetMetrics installs the ambient-observability hook. Optional; nil (the
// default) disables metric reporting.
func (p *Pump) SetMetrics(m Metrics) { p.metrics = m }

func (p *Pump) addBytesIn(n int) {
	if p.metrics != nil {
		p.metrics.AddBytesIn(n)
	}
}

func (p *Pump) addBytesOut(n int) {
	if p.metrics != nil {
		p.metrics.AddBytesOut(n)
	}
}

// ReadReady performs one read from r. A positive read is appended to the
// document's trailing section (creating one if none exists yet) and the
// notifier is woken. Returns (true, nil) on a read that made progress,
// (false, io.EOF) on a clean close, or (false, err) on a fatal read error.
func (p *Pump) ReadReady(r io.Reader) (progressed bool, err error) {
	n, rerr := r.Read(p.readBuf)
	if n > 0 {
		sec := p.doc.Trailing()
		if sec == nil {
			sec = p.doc.NewSection()
		}
		p.doc.AppendOutput(sec, p.readBuf[:n])
		p.notifier.Redraw()
		p.addBytesIn(n)
		progressed = true
	}
	if rerr != nil {
		if rerr == io.EOF {
			return progressed, io.EOF
		}
		return progressed, rerr
	}
	if n == 0 {
		// A reader returning (0, nil) is a contract violation, but
		// treat it the same as EOF rather than spin.
		return progressed, io.EOF
	}
	return progressed, nil
}

// WriteReady drains as much of the pending write buffer as w accepts
// without blocking. Returns (false, nil) when there is nothing pending.
func (p *Pump) WriteReady(w io.Writer) (progressed bool, err error) {
	if len(p.writeBuf) == 0 {
		return false, nil
	}
	n, werr := w.Write(p.writeBuf)
	if n > 0 {
		p.writeBuf = p.writeBuf[n:]
		p.addBytesOut(n)
		progressed = true
	}
	return progressed, werr
}

// Pending reports whether WriteReady has bytes left to drain.
func (p *Pump) Pending() bool { return len(p.writeBuf) > 0 }

// AddUserInput appends a completed line verbatim to the write buffer, to
// be drained out to the child on the next WriteReady.
func (p *Pump) AddUserInput(text string) {
	p.writeBuf = append(p.writeBuf, text...)
}
