package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/pubload/internal/pubload/workload"
)

// RunMetrics accumulates the results of every iteration of a run.
// Record may be called concurrently from all virtual users.
type RunMetrics struct {
	iterations      atomic.Uint64
	accepted        atomic.Uint64
	rejected        atomic.Uint64
	transportErrors atomic.Uint64
	timeouts        atomic.Uint64
	eventsSent      atomic.Uint64
	poolHits        atomic.Uint64

	mu          sync.Mutex
	statusCodes map[int]uint64
	latencies   []time.Duration
	errors      []*ErrorSummary
	errorIndex  map[string]*ErrorSummary
	maxErrors   int
	server      serverTotals

	collectors *collectors
}

type serverTotals struct {
	responses  uint64
	received   uint64
	inserted   uint64
	duplicates uint64
}

// NewRunMetrics returns an empty RunMetrics. Prometheus collectors are registered with registerer
// unless it is nil. At most maxErrors distinct error messages are kept for the report.
func NewRunMetrics(registerer prometheus.Registerer, maxErrors int) *RunMetrics {
	m := &RunMetrics{
		statusCodes: make(map[int]uint64),
		errorIndex:  make(map[string]*ErrorSummary),
		maxErrors:   maxErrors,
	}
	if registerer != nil {
		m.collectors = newCollectors(registerer)
	}
	return m
}

func (m *RunMetrics) Record(result workload.IterationResult) {
	m.iterations.Add(1)
	if result.Accepted {
		m.accepted.Add(1)
	} else {
		m.rejected.Add(1)
	}
	if result.TransportError() {
		m.transportErrors.Add(1)
		if result.Timeout {
			m.timeouts.Add(1)
		}
	}
	m.eventsSent.Add(uint64(result.Events))
	m.poolHits.Add(uint64(result.PoolHits))

	m.mu.Lock()
	if result.StatusCode != 0 {
		m.statusCodes[result.StatusCode]++
	}
	m.latencies = append(m.latencies, result.Duration)
	if result.Err != nil {
		m.recordError(result.Err.Error())
	}
	if result.Summary != nil {
		m.server.responses++
		m.server.received += uint64(result.Summary.Received)
		m.server.inserted += uint64(result.Summary.Inserted)
		m.server.duplicates += uint64(result.Summary.Duplicates)
	}
	m.mu.Unlock()

	if m.collectors != nil {
		m.collectors.record(result)
	}
}

// Must hold m.mu.
func (m *RunMetrics) recordError(message string) {
	if summary, ok := m.errorIndex[message]; ok {
		summary.Count++
		return
	}
	if len(m.errors) >= m.maxErrors {
		return
	}
	summary := &ErrorSummary{Message: message, Count: 1}
	m.errors = append(m.errors, summary)
	m.errorIndex[message] = summary
}

// Progress is a cheap snapshot of the counters, used for periodic logging.
type Progress struct {
	Iterations      uint64
	Accepted        uint64
	Rejected        uint64
	TransportErrors uint64
	EventsSent      uint64
}

func (m *RunMetrics) Progress() Progress {
	return Progress{
		Iterations:      m.iterations.Load(),
		Accepted:        m.accepted.Load(),
		Rejected:        m.rejected.Load(),
		TransportErrors: m.transportErrors.Load(),
		EventsSent:      m.eventsSent.Load(),
	}
}

// RunInfo describes the run a report is generated for.
type RunInfo struct {
	RunId              string
	TargetUrl          string
	VirtualUsers       int
	ConfiguredDuration time.Duration
	ActualDuration     time.Duration
}

// GenerateReport summarises everything recorded so far.
func (m *RunMetrics) GenerateReport(info RunInfo) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	iterations := m.iterations.Load()
	eventsSent := m.eventsSent.Load()
	poolHits := m.poolHits.Load()

	report := &Report{
		RunId:              info.RunId,
		TargetUrl:          info.TargetUrl,
		VirtualUsers:       info.VirtualUsers,
		ConfiguredDuration: info.ConfiguredDuration.String(),
		ActualDuration:     info.ActualDuration.String(),
		Iterations:         iterations,
		Accepted:           m.accepted.Load(),
		Rejected:           m.rejected.Load(),
		TransportErrors:    m.transportErrors.Load(),
		Timeouts:           m.timeouts.Load(),
		StatusCodes:        make(map[string]uint64, len(m.statusCodes)),
		EventsSent:         eventsSent,
		PoolHits:           poolHits,
		PoolHitRate:        ratio(poolHits, eventsSent),
		Latency:            latencyReport(m.latencies),
		Errors:             make([]ErrorSummary, 0, len(m.errors)),
	}
	for code, count := range m.statusCodes {
		report.StatusCodes[statusCodeKey(code)] = count
	}
	if seconds := info.ActualDuration.Seconds(); seconds > 0 {
		report.IterationsPerSecond = float64(iterations) / seconds
		report.EventsPerSecond = float64(eventsSent) / seconds
	}
	if m.server.responses > 0 {
		report.Server = &ServerReport{
			Responses:     m.server.responses,
			Received:      m.server.received,
			Inserted:      m.server.inserted,
			Duplicates:    m.server.duplicates,
			DuplicateRate: ratio(m.server.duplicates, m.server.received),
		}
	}
	for _, e := range m.errors {
		report.Errors = append(report.Errors, *e)
	}
	sort.SliceStable(report.Errors, func(i, j int) bool {
		return report.Errors[i].Count > report.Errors[j].Count
	})
	return report
}

func latencyReport(latencies []time.Duration) LatencyReport {
	if len(latencies) == 0 {
		return LatencyReport{}
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	slices.Sort(sorted)

	var total time.Duration
	for _, l := range sorted {
		total += l
	}
	return LatencyReport{
		P50:     percentile(sorted, 50).String(),
		P95:     percentile(sorted, 95).String(),
		P99:     percentile(sorted, 99).String(),
		Max:     sorted[len(sorted)-1].String(),
		Average: (total / time.Duration(len(sorted))).String(),
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func ratio(n, d uint64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
