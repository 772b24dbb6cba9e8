package session

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a prometheus.Collector exposing connection count, bytes
// shuttled, and the malformed-message and resync-discard counters the
// error-handling design makes ambiently observable.
//
// Grounded on runZeroInc-sockstats/pkg/exporter's TCPInfoCollector: a
// mutex-guarded snapshot struct, emitted through Describe/Collect rather
// than the package-global prometheus.MustRegister style.
type Metrics struct {
	mu sync.Mutex

	connectionsTotal   float64
	connectionsActive  float64
	bytesIn            float64
	bytesOut           float64
	malformedTotal     float64
	resyncDiscardTotal float64

	connectionsTotalDesc   *prometheus.Desc
	connectionsActiveDesc  *prometheus.Desc
	bytesInDesc            *prometheus.Desc
	bytesOutDesc           *prometheus.Desc
	malformedTotalDesc     *prometheus.Desc
	resyncDiscardTotalDesc *prometheus.Desc
}

// NewMetrics returns a ready-to-register Collector.
func NewMetrics() *Metrics {
	return &Metrics{
		connectionsTotalDesc:   prometheus.NewDesc("sixterm_connections_total", "Connections accepted since startup.", nil, nil),
		connectionsActiveDesc:  prometheus.NewDesc("sixterm_connections_active", "Currently open connections.", nil, nil),
		bytesInDesc:            prometheus.NewDesc("sixterm_bytes_in_total", "Bytes read from all connections.", nil, nil),
		bytesOutDesc:           prometheus.NewDesc("sixterm_bytes_out_total", "Bytes written to all connections.", nil, nil),
		malformedTotalDesc:     prometheus.NewDesc("sixterm_malformed_messages_total", "Malformed messages encountered.", nil, nil),
		resyncDiscardTotalDesc: prometheus.NewDesc("sixterm_resync_discarded_bytes_total", "Bytes discarded by the resync policy.", nil, nil),
	}
}

func (m *Metrics) Describe(descs chan<- *prometheus.Desc) {
	descs <- m.connectionsTotalDesc
	descs <- m.connectionsActiveDesc
	descs <- m.bytesInDesc
	descs <- m.bytesOutDesc
	descs <- m.malformedTotalDesc
	descs <- m.resyncDiscardTotalDesc
}

func (m *Metrics) Collect(metrics chan<- prometheus.Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics <- prometheus.MustNewConstMetric(m.connectionsTotalDesc, prometheus.CounterValue, m.connectionsTotal)
	metrics <- prometheus.MustNewConstMetric(m.connectionsActiveDesc, prometheus.GaugeValue, m.connectionsActive)
	metrics <- prometheus.MustNewConstMetric(m.bytesInDesc, prometheus.CounterValue, m.bytesIn)
	metrics <- prometheus.MustNewConstMetric(m.bytesOutDesc, prometheus.CounterValue, m.bytesOut)
	metrics <- prometheus.MustNewConstMetric(m.malformedTotalDesc, prometheus.CounterValue, m.malformedTotal)
	metrics <- prometheus.MustNewConstMetric(m.resyncDiscardTotalDesc, prometheus.CounterValue, m.resyncDiscardTotal)
}

func (m *Metrics) connectionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectionsTotal++
	m.connectionsActive++
}

func (m *Metrics) connectionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectionsActive--
}

// AddBytesIn, AddBytesOut, AddMalformed and AddResyncDiscard satisfy the
// engine.Metrics and stdio.Metrics hook interfaces.

func (m *Metrics) AddBytesIn(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesIn += float64(n)
}

func (m *Metrics) AddBytesOut(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesOut += float64(n)
}

func (m *Metrics) AddMalformed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformedTotal++
}

func (m *Metrics) AddResyncDiscard(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resyncDiscardTotal += float64(n)
}
