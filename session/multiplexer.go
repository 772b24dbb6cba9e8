package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/iox"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/vt6lab/sixterm/conn"
	"github.com/vt6lab/sixterm/document"
	"github.com/vt6lab/sixterm/engine"
	"github.com/vt6lab/sixterm/handler"
	"github.com/vt6lab/sixterm/notify"
	"github.com/vt6lab/sixterm/stdio"
)

// Multiplexer is the connection/session multiplexer: one listening Unix
// socket, a monotonically assigned connection id space, a shared document,
// and a redraw notifier.
type Multiplexer struct {
	cfg      Config
	log      *logrus.Logger
	listener *net.UnixListener

	doc      *document.Document
	notifier *notify.Coalescing
	metrics  *Metrics

	nextID uint32

	primaryMu sync.Mutex
	primary   *primaryPump
}

type primaryPump struct {
	pump *stdio.Pump
	conn net.Conn
}

// New binds the listening socket at cfg.SocketPath. The caller is
// responsible for calling Run; the socket is unlinked when Run returns.
func New(cfg Config) (*Multiplexer, error) {
	cfg = cfg.withDefaults()
	addr, err := net.ResolveUnixAddr("unix", cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("session: resolve socket path: %w", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("session: bind socket: %w", err)
	}
	return &Multiplexer{
		cfg:      cfg,
		log:      cfg.Logger,
		listener: ln,
		doc:      document.New(),
		notifier: notify.NewCoalescing(),
		metrics:  NewMetrics(),
	}, nil
}

// Document returns the shared document driving the GUI's view.
func (m *Multiplexer) Document() *document.Document { return m.doc }

// Notifier returns the cross-thread redraw notifier the GUI selects on.
func (m *Multiplexer) Notifier() notify.Notifier { return m.notifier }

// Metrics returns the prometheus.Collector exposing connection and
// protocol-health counters.
func (m *Multiplexer) Metrics() *Metrics { return m.metrics }

// Run accepts connections and drives them until ctx is cancelled,
// userInput is closed — the normal shutdown path, where closing the
// channel signals the GUI has exited — or the first (stdio) connection
// ends. On return, every connection still open is closed and its
// goroutine waited for. userInput is owned and sized by the
// caller (the GUI side): Run only ever reads from it, so its buffering
// policy — and what happens to a keystroke line when it's full — is the
// caller's decision, not this package's. The socket path is unlinked on
// every exit path, not only success (supplementing
// original_source/src/server/mod.rs's success-only cleanup).
func (m *Multiplexer) Run(ctx context.Context, userInput <-chan string) error {
	defer m.cleanupSocket()

	accepted := make(chan net.Conn)
	acceptErr := make(chan error, 1)
	go func() {
		for {
			c, err := m.listener.Accept()
			if err != nil {
				acceptErr <- err
				return
			}
			accepted <- c
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	var open sync.Map // id -> net.Conn
	defer open.Range(func(_, c any) bool {
		c.(net.Conn).Close()
		return true
	})
	stdioDone := make(chan struct{})

	for {
		select {
		case <-ctx.Done():
			m.listener.Close()
			return nil
		case <-stdioDone:
			m.listener.Close()
			return nil
		case err := <-acceptErr:
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("session: accept: %w", err)
		case text, ok := <-userInput:
			if !ok {
				m.listener.Close()
				return nil
			}
			m.routeUserInput(text)
		case c := <-accepted:
			id := atomic.AddUint32(&m.nextID, 1)
			m.metrics.connectionOpened()
			open.Store(id, c)
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.handleConnection(c, id)
				open.Delete(id)
				if id == 1 {
					close(stdioDone)
				}
			}()
		}
	}
}

func (m *Multiplexer) cleanupSocket() {
	path := m.listener.Addr().String()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.log.WithError(err).Warn("failed to unlink socket path on shutdown")
	}
}

func (m *Multiplexer) routeUserInput(text string) {
	m.primaryMu.Lock()
	p := m.primary
	m.primaryMu.Unlock()
	if p == nil {
		m.log.Warn("user input dropped: stdio pump not yet established")
		return
	}
	p.pump.AddUserInput(text)
	if _, err := p.pump.WriteReady(p.conn); err != nil && !errors.Is(err, io.EOF) {
		m.log.WithError(err).Warn("stdio pump write failed")
	}
}

func (m *Multiplexer) handleConnection(c net.Conn, id uint32) {
	correlation := xid.New().String()
	log := m.log.WithFields(logrus.Fields{"conn": id, "correlation_id": correlation})

	if uc, ok := c.(*net.UnixConn); ok {
		if pid, uid, ok := peerCredentials(uc); ok {
			log = log.WithFields(logrus.Fields{"peer_pid": pid, "peer_uid": uid})
		}
	}
	log.Trace("connection accepted")

	defer func() {
		c.Close()
		m.metrics.connectionClosed()
		log.Trace("connection closed")
	}()

	if id == 1 {
		m.runStdio(c, id, log)
		return
	}
	m.runEngine(c, id, log)
}

// runStdio drives the raw byte-shuttle path for a connection already in
// (or promoted to) stdio mode. Only the first accepted connection is
// wired as the routing target for GUI user input;
// later connections promoted via core.make-stdio still pump child output
// into the shared document, they just aren't fed keystrokes.
func (m *Multiplexer) runStdio(c net.Conn, id uint32, log *logrus.Entry) {
	pump := stdio.New(m.doc, m.notifier, m.cfg.StdioReadBufCapacity)
	pump.SetMetrics(m.metrics)

	if id == 1 {
		m.primaryMu.Lock()
		m.primary = &primaryPump{pump: pump, conn: c}
		m.primaryMu.Unlock()
		defer func() {
			m.primaryMu.Lock()
			if m.primary != nil && m.primary.conn == c {
				m.primary = nil
			}
			m.primaryMu.Unlock()
		}()
	}

	for {
		_, err := pump.ReadReady(c)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Error("stdio pump read failed")
			}
			return
		}
	}
}

// runEngine drives the VT6 message protocol for a connection until it is
// closed, errors fatally, or is promoted to stdio mode, at which point it
// falls through to runStdio on the same net.Conn.
func (m *Multiplexer) runEngine(c net.Conn, id uint32, log *logrus.Entry) {
	state := conn.New(id, m.cfg.BufferCapacity)
	chain := handler.NewDefaultChain(m.cfg.CoreMaxMinor, m.cfg.TermMaxMinor)
	eng := engine.New(state, chain, m.log)
	eng.Metrics = m.metrics

	for {
		_, err := eng.Drive(c, c)
		if err != nil {
			if errors.Is(err, iox.ErrWouldBlock) {
				continue
			}
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Error("connection engine failed")
			}
			return
		}
		if state.IsStdio() {
			log.Info("connection promoted to stdio mode")
			m.runStdio(c, id, log)
			return
		}
		// Drive returns nil only after promotion, so this point is not
		// reached; loop and call Drive again.
	}
}
