package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/tracez"
)

// WorkerEvent is emitted via hookz for lifecycle events a collaborator might
// want to observe without polling.
type WorkerEvent struct {
	WorkerID       int
	IterationIndex int
	Err            error
	Timestamp      time.Time
}

const (
	// HookIterationError fires when an iteration ends in an IterationError
	// or a recovered panic.
	HookIterationError = hookz.Key("flowrunner.worker.iteration_error")
	// HookWorkerStopped fires once, when a worker's Run loop returns.
	HookWorkerStopped = hookz.Key("flowrunner.worker.stopped")
)

// Worker is one simulated user's continuous lifecycle. There is
// no separate "runner" object: the worker's Run loop is the iteration loop.
type Worker struct {
	id      int
	cfg     *Config
	flow    *Flow
	metrics *Metrics
	clock   clockz.Clock
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[WorkerEvent]
	logger  *slog.Logger

	rng *rand.Rand
}

// NewWorker builds a worker. seed gives each worker an independent,
// reproducible random source for identity and sleep jitter.
func NewWorker(id int, cfg *Config, flow *Flow, metrics *Metrics, clock clockz.Clock, tracer *tracez.Tracer, hooks *hookz.Hooks[WorkerEvent], logger *slog.Logger, seed int64) *Worker {
	return &Worker{
		id:      id,
		cfg:     cfg,
		flow:    flow,
		metrics: metrics,
		clock:   clock,
		tracer:  tracer,
		hooks:   hooks,
		logger:  logger,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Run executes iterations continuously until ctx is canceled. It always
// closes its HTTP client and decrements the active-user gauge on exit, by
// whatever path.
func (w *Worker) Run(ctx context.Context) {
	identity := NewIdentity(w.rng)
	executor := NewExecutor(w.metrics)
	defer executor.Close()

	w.metrics.IncActiveUsers()
	defer w.metrics.DecActiveUsers()

	interp := NewInterpreter(executor, w.cfg, w.flow.Headers, identity, w.clock, w.rng, w.tracer, w.logger)

	iterationIndex := 0
	for {
		select {
		case <-ctx.Done():
			if w.hooks != nil {
				_ = w.hooks.Emit(context.Background(), HookWorkerStopped, WorkerEvent{WorkerID: w.id, IterationIndex: iterationIndex, Timestamp: w.clock.Now()})
			}
			return
		default:
		}

		data := w.buildInitialContext(identity, iterationIndex)
		start := w.clock.Now()

		if err := w.runIteration(ctx, interp, &data); err != nil {
			if ctx.Err() != nil {
				if w.hooks != nil {
					_ = w.hooks.Emit(context.Background(), HookWorkerStopped, WorkerEvent{WorkerID: w.id, IterationIndex: iterationIndex, Timestamp: w.clock.Now()})
				}
				return
			}
			w.logger.Warn("worker: iteration failed", "worker_id", w.id, "iteration", iterationIndex, "error", err)
			if w.hooks != nil {
				_ = w.hooks.Emit(ctx, HookIterationError, WorkerEvent{WorkerID: w.id, IterationIndex: iterationIndex, Err: err, Timestamp: w.clock.Now()})
			}
		} else {
			w.metrics.RecordFlowCompletion(w.clock.Now().Sub(start))
		}

		iterationIndex++

		if err := w.sleepBetweenIterations(ctx); err != nil {
			if w.hooks != nil {
				_ = w.hooks.Emit(context.Background(), HookWorkerStopped, WorkerEvent{WorkerID: w.id, IterationIndex: iterationIndex, Timestamp: w.clock.Now()})
			}
			return
		}
	}
}

// runIteration recovers a panic escaping the interpreter into a FatalError:
// the worker logs it and moves to the next iteration rather than dying.
func (w *Worker) runIteration(ctx context.Context, interp *Interpreter, data *Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newIterationError(ErrorKindFatal, ErrorCodeRuntime, "", fmt.Errorf("recovered panic: %v", r))
		}
	}()
	return interp.Execute(ctx, w.flow.Steps, data)
}

func (w *Worker) buildInitialContext(identity Identity, iterationIndex int) Value {
	data := w.flow.StaticVars.Clone()
	if data.Kind != KindMap {
		data = Map()
	}
	data.Map.Set("sim_user_id", Number(float64(w.id)))
	data.Map.Set("iteration_source_ip", String(identity.SourceIP))
	data.Map.Set("iteration_user_agent", String(identity.UserAgent))
	data.Map.Set("flow_iteration_index", Number(float64(iterationIndex)))
	data.Map.Set("flow_iteration_id", String(uuid.NewString()))
	return data
}

func (w *Worker) sleepBetweenIterations(ctx context.Context) error {
	var d time.Duration
	if w.cfg.FlowCycleDelayMS > 0 {
		d = time.Duration(w.cfg.FlowCycleDelayMS) * time.Millisecond
	} else {
		d = randomDuration(w.cfg.MinSleepMS, w.cfg.MaxSleepMS, w.rng)
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-w.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
