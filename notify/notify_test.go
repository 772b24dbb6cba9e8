package notify_test

import (
	"testing"
	"time"

	"github.com/vt6lab/sixterm/notify"
)

func TestCoalescesDuplicateRedraws(t *testing.T) {
	n := notify.NewCoalescing()
	n.Redraw()
	n.Redraw()
	n.Redraw()

	select {
	case <-n.C():
	default:
		t.Fatal("expected a pending wake")
	}

	select {
	case <-n.C():
		t.Fatal("expected duplicate redraws to coalesce into one wake")
	default:
	}
}

func TestRedrawNeverBlocks(t *testing.T) {
	n := notify.NewCoalescing()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			n.Redraw()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Redraw blocked")
	}
}
