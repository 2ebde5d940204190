package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/tracez"
)

const (
	spanRequestStep   = tracez.Key("flowrunner.step.request")
	spanConditionStep = tracez.Key("flowrunner.step.condition")
	spanLoopStep      = tracez.Key("flowrunner.step.loop")

	tagStepID      = tracez.Tag("flowrunner.step_id")
	tagIterationID = tracez.Tag("flowrunner.iteration_id")
	tagMethod      = tracez.Tag("flowrunner.method")
	tagURL         = tracez.Tag("flowrunner.url")
	tagSuccess     = tracez.Tag("flowrunner.success")
	tagConditionR  = tracez.Tag("flowrunner.condition_result")
	tagLoopLen     = tracez.Tag("flowrunner.loop_length")
)

// Interpreter dispatches a step sequence against a single iteration's
// context. One Interpreter belongs to one worker; it carries no
// state across Execute calls beyond its immutable collaborators.
type Interpreter struct {
	executor    *Executor
	cfg         *Config
	flowHeaders map[string]string
	identity    Identity
	clock       clockz.Clock
	rng         *rand.Rand
	tracer      *tracez.Tracer
	logger      *slog.Logger
}

// NewInterpreter builds an Interpreter bound to one worker's identity and
// HTTP executor.
func NewInterpreter(executor *Executor, cfg *Config, flowHeaders map[string]string, identity Identity, clock clockz.Clock, rng *rand.Rand, tracer *tracez.Tracer, logger *slog.Logger) *Interpreter {
	return &Interpreter{
		executor:    executor,
		cfg:         cfg,
		flowHeaders: flowHeaders,
		identity:    identity,
		clock:       clock,
		rng:         rng,
		tracer:      tracer,
		logger:      logger,
	}
}

// Execute runs steps in order against data. It returns the first
// *IterationError produced by a Request step whose on_failure is "stop";
// any other error means the context was canceled.
func (interp *Interpreter) Execute(ctx context.Context, steps []Step, data *Value) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := interp.executeStep(ctx, step, data); err != nil {
			return err
		}
		if i < len(steps)-1 {
			if err := interp.sleepBetweenSteps(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (interp *Interpreter) executeStep(ctx context.Context, step Step, data *Value) error {
	switch step.Type {
	case StepRequest:
		return interp.executeRequest(ctx, step, data)
	case StepCondition:
		return interp.executeCondition(ctx, step, data)
	case StepLoop:
		return interp.executeLoop(ctx, step, data)
	default:
		return nil
	}
}

func (interp *Interpreter) executeRequest(ctx context.Context, step Step, data *Value) error {
	substitutedURL := Substitute(String(step.URL), *data).AsString()
	built, err := BuildURL(interp.cfg.TargetURL(), interp.cfg.FlowTargetDNSOverride, substitutedURL, interp.cfg.OverrideStepURLHost, interp.logger)
	if err != nil {
		interp.logger.Warn("interpreter: failed to build request url", "step", step.ID, "url", step.URL, "error", err)
		return nil
	}

	sessionDefaults := map[string]string{
		"User-Agent":      interp.identity.UserAgent,
		"Accept-Language": interp.identity.AcceptLanguage,
	}
	flowHeaders := substituteHeaderMap(interp.flowHeaders, *data)
	stepHeaders := substituteHeaderMap(step.Headers, *data)
	headers := MergeHeaders(interp.identity.SourceIP, interp.cfg.XFFHeaderName, sessionDefaults, flowHeaders, stepHeaders)

	bodyVal := Missing
	if !step.Body.IsMissing() {
		bodyVal = Substitute(step.Body, *data)
	}
	bodyBytes, err := PrepareBody(step.Method, bodyVal, headers)
	if err != nil {
		interp.logger.Warn("interpreter: failed to prepare request body", "step", step.ID, "error", err)
		return nil
	}

	reqCtx, span := interp.tracer.StartSpan(ctx, spanRequestStep)
	span.SetTag(tagStepID, step.ID)
	span.SetTag(tagIterationID, ResolvePath(*data, "flow_iteration_id").AsString())
	span.SetTag(tagMethod, step.Method)
	span.SetTag(tagURL, built.RequestURL)
	defer span.Finish()

	resp, reqErr := interp.executor.Do(reqCtx, RequestSpec{
		Method:  step.Method,
		URL:     built,
		Headers: headers,
		Body:    bodyBytes,
	})

	if reqErr != nil {
		span.SetTag(tagSuccess, "false")
		interp.logger.Warn("interpreter: request failed", "step", step.ID, "error", reqErr)
		if step.OnFailure == "stop" {
			SetPath(data, "_flow_error", String(reqErr.Error()))
			return newIterationError(ErrorKindRequest, ErrorCodeNetwork, step.ID, reqErr)
		}
		return nil
	}

	if step.Extract != nil {
		ExtractAll(resp, step.Extract, data, interp.logger)
	}

	if resp.Status >= 400 {
		span.SetTag(tagSuccess, "false")
		if step.OnFailure == "stop" {
			SetPath(data, "_flow_error", String(fmt.Sprintf("non-2xx status %d", resp.Status)))
			return newIterationError(ErrorKindRequest, ErrorCodeNon2xx, step.ID, fmt.Errorf("status %d", resp.Status))
		}
		return nil
	}

	span.SetTag(tagSuccess, "true")
	return nil
}

// executeCondition runs the matching branch against a clone of data, then
// merges the clone's contents back into the caller's context (nested maps
// merge, everything else is replaced).
func (interp *Interpreter) executeCondition(ctx context.Context, step Step, data *Value) error {
	result := EvaluateCondition(*data, step.ConditionData, interp.logger)

	_, span := interp.tracer.StartSpan(ctx, spanConditionStep)
	span.SetTag(tagStepID, step.ID)
	span.SetTag(tagConditionR, fmt.Sprintf("%t", result))
	defer span.Finish()

	body := step.Else
	if result {
		body = step.Then
	}

	branch := data.Clone()
	if err := interp.Execute(ctx, body, &branch); err != nil {
		return err
	}
	deepMergeInto(data, branch)
	return nil
}

// executeLoop skips the loop with a warning when source resolves to
// anything but a list (including null, a scalar, or a map) rather than
// failing the iteration. Each element runs against an independent clone of
// the pre-loop context so mutations never leak between iterations.
func (interp *Interpreter) executeLoop(ctx context.Context, step Step, data *Value) error {
	source := ResolvePath(*data, step.Source)
	if source.Kind != KindList {
		interp.logger.Warn("interpreter: loop source is not a list", "step", step.ID, "source", step.Source, "kind", source.Kind.String())
		return nil
	}

	_, span := interp.tracer.StartSpan(ctx, spanLoopStep)
	span.SetTag(tagStepID, step.ID)
	span.SetTag(tagLoopLen, fmt.Sprintf("%d", len(source.List)))
	defer span.Finish()

	for i, element := range source.List {
		iterData := data.Clone()
		_ = SetPath(&iterData, step.LoopVariable, element.Clone())
		_ = SetPath(&iterData, step.LoopVariable+"_index", Number(float64(i)))
		if err := interp.Execute(ctx, step.Steps, &iterData); err != nil {
			return err
		}
	}
	return nil
}

// deepMergeInto merges branch's keys into parent: nested maps merge
// recursively, every other kind of value (scalar or list) is replaced
// wholesale by the branch's value.
func deepMergeInto(parent *Value, branch Value) {
	if parent.Kind != KindMap || branch.Kind != KindMap {
		*parent = branch
		return
	}
	for _, k := range branch.Map.Keys() {
		bv, _ := branch.Map.Get(k)
		if pv, ok := parent.Map.Get(k); ok && pv.Kind == KindMap && bv.Kind == KindMap {
			deepMergeInto(pv, *bv)
			continue
		}
		parent.Map.Set(k, bv.Clone())
	}
}

func substituteHeaderMap(headers map[string]string, ctx Value) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = Substitute(String(v), ctx).AsString()
	}
	return out
}

func (interp *Interpreter) sleepBetweenSteps(ctx context.Context) error {
	d := randomDuration(interp.cfg.MinSleepMS, interp.cfg.MaxSleepMS, interp.rng)
	if d <= 0 {
		return nil
	}
	select {
	case <-interp.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomDuration(minMS, maxMS int, rng *rand.Rand) time.Duration {
	if minMS == 0 && maxMS == 0 {
		return 0
	}
	span := maxMS - minMS
	n := minMS
	if span > 0 {
		n += rng.Intn(span + 1)
	}
	return time.Duration(n) * time.Millisecond
}
