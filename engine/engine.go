package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/tracez"
)

// Status is the engine's process-wide state.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusRunning       Status = "running"
	StatusStopped       Status = "stopped"
	StatusError         Status = "error"
)

// Engine is the top-level orchestrator: Start/Stop/Status/Snapshot are its
// entire surface toward the external control-API collaborator. All state transitions are guarded by mu.
type Engine struct {
	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *Metrics
	clock   clockz.Clock
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[WorkerEvent]
	logger  *slog.Logger

	gracePeriod time.Duration
}

// NewEngine builds an Engine in the initializing state. A nil logger uses
// slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		status:      StatusInitializing,
		metrics:     NewMetrics(clockz.RealClock),
		clock:       clockz.RealClock,
		tracer:      tracez.New(),
		hooks:       hookz.New[WorkerEvent](),
		logger:      logger,
		gracePeriod: 5 * time.Second,
	}
}

// Start validates cfg and flow, performs an implicit Stop if already
// running, then spawns cfg.SimUsers workers. cfg and flow must
// already have passed ParseConfig/ParseFlow — Start only re-checks the
// invariants a caller bypassing those would violate.
func (e *Engine) Start(cfg *Config, flow *Flow) error {
	if cfg == nil || cfg.TargetURL() == nil {
		e.setErrorStatus()
		return &ValidationError{Message: "config must be produced by ParseConfig"}
	}
	if flow == nil || len(flow.Steps) == 0 {
		e.setErrorStatus()
		return &ValidationError{Message: "flow must be produced by ParseFlow and have at least one step"}
	}

	e.mu.Lock()
	alreadyRunning := e.status == StatusRunning
	e.mu.Unlock()
	if alreadyRunning {
		e.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.cancel = cancel
	e.status = StatusRunning
	e.mu.Unlock()
	e.metrics.SetRunning(true)

	for i := 0; i < cfg.SimUsers; i++ {
		worker := NewWorker(i, cfg, flow, e.metrics, e.clock, e.tracer, e.hooks, e.logger, int64(i)+1)
		e.wg.Add(1)
		go func(w *Worker) {
			defer e.wg.Done()
			w.Run(ctx)
		}(worker)
	}

	return nil
}

func (e *Engine) setErrorStatus() {
	e.mu.Lock()
	e.status = StatusError
	e.mu.Unlock()
}

// Stop signals cancellation, waits for every worker to join (bounded by a
// grace period, after which it keeps waiting but logs the overrun — Go
// cannot forcibly kill a goroutine, so the shared cancellation signal is
// the only "force" available), and transitions to stopped. Idempotent:
// calling Stop when not running is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.status != StatusRunning {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(e.gracePeriod):
		e.logger.Warn("engine: grace period exceeded waiting for workers to join")
		<-done
	}

	e.metrics.SetActiveUsers(0)
	e.metrics.SetRunning(false)

	e.mu.Lock()
	e.status = StatusStopped
	e.mu.Unlock()
}

// Status returns the current engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Snapshot returns a consistent metrics read.
func (e *Engine) Snapshot() Snapshot {
	return e.metrics.Snapshot()
}

// Hooks exposes lifecycle events (worker stop, iteration error) for a
// collaborator to subscribe to instead of polling.
func (e *Engine) Hooks() *hookz.Hooks[WorkerEvent] { return e.hooks }

// Tracer exposes the engine's tracer for a collaborator wiring its own
// exposition of spans.
func (e *Engine) Tracer() *tracez.Tracer { return e.tracer }

// Metrics exposes the underlying aggregator, e.g. for a Prometheus
// exposition collaborator to read the metricz registry directly.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Close releases the engine's own observability resources. Call after a
// final Stop, when the engine itself is being torn down.
func (e *Engine) Close() error {
	e.tracer.Close()
	e.hooks.Close()
	return nil
}
