package stdio_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/vt6lab/sixterm/document"
	"github.com/vt6lab/sixterm/notify"
	"github.com/vt6lab/sixterm/stdio"
)

func TestReadReadyAppendsToTrailingSectionAndWakes(t *testing.T) {
	doc := document.New()
	sec := doc.NewSection()
	n := notify.NewCoalescing()
	p := stdio.New(doc, n, 0)

	progressed, err := p.ReadReady(bytes.NewReader([]byte("hello\n")))
	if !progressed || err != nil {
		t.Fatalf("ReadReady = (%v, %v), want (true, nil)", progressed, err)
	}
	if string(sec.Text()) != "hello\n" {
		t.Fatalf("section text = %q, want %q", sec.Text(), "hello\n")
	}
	select {
	case <-n.C():
	default:
		t.Fatal("expected a redraw wake")
	}
}

func TestReadReadyCreatesSectionIfNoneExists(t *testing.T) {
	doc := document.New()
	p := stdio.New(doc, notify.NewCoalescing(), 0)

	if _, err := p.ReadReady(bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("ReadReady: %v", err)
	}
	if len(doc.Sections()) != 1 {
		t.Fatalf("expected a section to have been created")
	}
}

func TestReadReadyReportsEOF(t *testing.T) {
	doc := document.New()
	doc.NewSection()
	p := stdio.New(doc, notify.NewCoalescing(), 0)

	_, err := p.ReadReady(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestAddUserInputDrainsThroughWriteReady(t *testing.T) {
	doc := document.New()
	doc.NewSection()
	p := stdio.New(doc, notify.NewCoalescing(), 0)

	p.AddUserInput("ls -l\n")
	if !p.Pending() {
		t.Fatal("expected pending output after AddUserInput")
	}

	var out bytes.Buffer
	progressed, err := p.WriteReady(&out)
	if !progressed || err != nil {
		t.Fatalf("WriteReady = (%v, %v), want (true, nil)", progressed, err)
	}
	if out.String() != "ls -l\n" {
		t.Fatalf("written = %q, want %q", out.String(), "ls -l\n")
	}
	if p.Pending() {
		t.Fatal("expected write buffer drained")
	}
}

func TestWriteReadyNoOpWhenNothingPending(t *testing.T) {
	p := stdio.New(document.New(), notify.NewCoalescing(), 0)
	progressed, err := p.WriteReady(&bytes.Buffer{})
	if progressed || err != nil {
		t.Fatalf("WriteReady = (%v, %v), want (false, nil)", progressed, err)
	}
}
