package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

// Metric keys exported through the registry for external exposition.
const (
	MetricTotalRequests = metricz.Key("flowrunner.requests.total")
	MetricFlowCount     = metricz.Key("flowrunner.flows.total")
	MetricActiveUsers   = metricz.Key("flowrunner.active_users")
)

const (
	rpsWindow       = 10 * time.Second
	durationWindowN = 100
)

// Metrics is the process-wide aggregator. metricz.Registry backs the
// counters/gauges an exposition collaborator would scrape; the
// rolling-window fields (rps, avg_flow_duration_ms) need read-back
// precision metricz's write-only Counter/Gauge API doesn't provide, so
// those are tracked alongside it with a small mutex.
type Metrics struct {
	registry *metricz.Registry
	clock    clockz.Clock

	totalRequests atomic.Uint64
	flowCount     atomic.Uint64
	activeUsers   atomic.Int64
	running       atomic.Bool

	mu            sync.Mutex
	requestTimes  []time.Time
	flowDurations []float64
	durIdx        int
}

// NewMetrics builds an aggregator. A nil clock uses clockz.RealClock.
func NewMetrics(clock clockz.Clock) *Metrics {
	if clock == nil {
		clock = clockz.RealClock
	}
	registry := metricz.New()
	registry.Counter(MetricTotalRequests)
	registry.Counter(MetricFlowCount)
	registry.Gauge(MetricActiveUsers)
	return &Metrics{registry: registry, clock: clock}
}

// Registry exposes the underlying metricz registry to an exposition
// collaborator.
func (m *Metrics) Registry() *metricz.Registry { return m.registry }

// IncRequests records one completed request and feeds the rolling RPS window.
func (m *Metrics) IncRequests() {
	m.registry.Counter(MetricTotalRequests).Inc()
	m.totalRequests.Add(1)

	now := m.clock.Now()
	m.mu.Lock()
	m.requestTimes = append(m.requestTimes, now)
	m.requestTimes = trimBefore(m.requestTimes, now.Add(-rpsWindow))
	m.mu.Unlock()
}

// RecordFlowCompletion records one completed iteration's duration into the
// rolling average window.
func (m *Metrics) RecordFlowCompletion(duration time.Duration) {
	m.registry.Counter(MetricFlowCount).Inc()
	m.flowCount.Add(1)

	ms := float64(duration.Microseconds()) / 1000.0
	m.mu.Lock()
	if len(m.flowDurations) < durationWindowN {
		m.flowDurations = append(m.flowDurations, ms)
	} else {
		m.flowDurations[m.durIdx%durationWindowN] = ms
	}
	m.durIdx++
	m.mu.Unlock()
}

// SetActiveUsers sets the active_simulated_users gauge directly, used by
// the engine at Start/Stop boundaries.
func (m *Metrics) SetActiveUsers(n int) {
	m.activeUsers.Store(int64(n))
	m.registry.Gauge(MetricActiveUsers).Set(float64(n))
}

// IncActiveUsers/DecActiveUsers track one worker starting or exiting.
func (m *Metrics) IncActiveUsers() {
	n := m.activeUsers.Add(1)
	m.registry.Gauge(MetricActiveUsers).Set(float64(n))
}

func (m *Metrics) DecActiveUsers() {
	n := m.activeUsers.Add(-1)
	if n < 0 {
		n = 0
		m.activeUsers.Store(0)
	}
	m.registry.Gauge(MetricActiveUsers).Set(float64(n))
}

// SetRunning records the engine's running state for Snapshot.
func (m *Metrics) SetRunning(running bool) { m.running.Store(running) }

// Snapshot is the read-only metrics record returned by Engine.Snapshot.
type Snapshot struct {
	Running              bool
	ActiveSimulatedUsers int
	TotalRequests        uint64
	RPS                  float64
	FlowCount            uint64
	AvgFlowDurationMS    float64
}

// Snapshot produces a consistent read of all observables.
func (m *Metrics) Snapshot() Snapshot {
	now := m.clock.Now()

	m.mu.Lock()
	m.requestTimes = trimBefore(m.requestTimes, now.Add(-rpsWindow))
	rps := float64(len(m.requestTimes)) / rpsWindow.Seconds()

	var avgDuration float64
	if len(m.flowDurations) > 0 {
		var sum float64
		for _, d := range m.flowDurations {
			sum += d
		}
		avgDuration = sum / float64(len(m.flowDurations))
	}
	m.mu.Unlock()

	return Snapshot{
		Running:              m.running.Load(),
		ActiveSimulatedUsers: int(m.activeUsers.Load()),
		TotalRequests:        m.totalRequests.Load(),
		RPS:                  rps,
		FlowCount:            m.flowCount.Load(),
		AvgFlowDurationMS:    avgDuration,
	}
}

func trimBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append([]time.Time(nil), times[i:]...)
}
