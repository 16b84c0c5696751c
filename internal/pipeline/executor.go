package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	pix "github.com/ironsheep/image-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/image-pipeline-mcp/internal/logging"
	"github.com/ironsheep/image-pipeline-mcp/internal/transform"
)

const (
	statusOK    = "ok"
	statusError = "error"

	tracerName = "image-pipeline-mcp/pipeline"
)

// UnknownKeyPolicy decides what happens to configuration keys that name no
// registered transformation.
type UnknownKeyPolicy int

const (
	// SkipUnknown logs the key, records it in Result.Skipped and continues.
	SkipUnknown UnknownKeyPolicy = iota
	// RejectUnknown fails the run with *UnknownKeyError.
	RejectUnknown
)

func (p UnknownKeyPolicy) String() string {
	if p == RejectUnknown {
		return "reject"
	}
	return "skip"
}

// ParsePolicy maps the settings value ("skip" or "reject") to a policy.
func ParsePolicy(s string) (UnknownKeyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return SkipUnknown, nil
	case "reject":
		return RejectUnknown, nil
	}
	return SkipUnknown, fmt.Errorf("unknown key policy %q: want skip or reject", s)
}

// Result is the outcome of a successful run.
type Result struct {
	RunID string
	Image pix.Raster
	// OriginalFormat is the input's format, unaffected by a format step.
	OriginalFormat string
	// Applied lists the keys that ran, in order.
	Applied []string
	// Skipped lists unknown keys passed over under SkipUnknown.
	Skipped []string
}

// Executor walks a configuration object and chains the matching
// transformations. It holds no per-run state and is safe for concurrent use.
type Executor struct {
	registry *transform.Registry
	log      logging.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	unknown  UnknownKeyPolicy
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics records runs and steps in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithUnknownKeys sets the unknown key policy.
func WithUnknownKeys(p UnknownKeyPolicy) Option {
	return func(e *Executor) { e.unknown = p }
}

// NewExecutor creates an executor over registry, which must not be nil.
func NewExecutor(registry *transform.Registry, opts ...Option) *Executor {
	if registry == nil {
		panic("pipeline: nil registry")
	}
	e := &Executor{
		registry: registry,
		log:      logging.NewNop(),
		tracer:   otel.Tracer(tracerName),
		unknown:  SkipUnknown,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the executor dispatches to.
func (e *Executor) Registry() *transform.Registry { return e.registry }

// Run applies every entry of cfg to img in source order. The first failing
// step aborts the run and no image is returned. The input raster is never
// modified.
func (e *Executor) Run(ctx context.Context, img pix.Raster, cfg config.Value) (res *Result, err error) {
	runID := uuid.NewString()
	log := e.log.Named("pipeline").With(zap.String("run_id", runID))
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("pipeline.run_id", runID),
		attribute.Int("pipeline.steps", cfg.Len()),
		attribute.String("image.format", img.Format),
		attribute.Int("image.width", img.Width()),
		attribute.Int("image.height", img.Height()),
	))
	e.metrics.runStarted()

	defer func() {
		status := statusOK
		if err != nil {
			status = statusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Warn("pipeline failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		} else {
			span.SetStatus(codes.Ok, "")
			log.Debug("pipeline complete",
				zap.Strings("applied", res.Applied),
				zap.Strings("skipped", res.Skipped),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
		span.End()
		e.metrics.runFinished(status, time.Since(start), img.Width()*img.Height())
	}()

	if cfg.Kind() != config.Object {
		return nil, config.NewValidationError(config.TypeMismatch, "pipeline", "config",
			fmt.Sprintf("must be of type dict, got %s", cfg.Kind()))
	}

	res = &Result{
		RunID:          runID,
		OriginalFormat: img.Format,
		Applied:        make([]string, 0, cfg.Len()),
	}
	current := img

	for i, entry := range cfg.Members() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		t, ok := e.registry.Lookup(entry.Key)
		if !ok {
			if e.unknown == RejectUnknown {
				return nil, &UnknownKeyError{Index: i, Key: entry.Key}
			}
			log.Warn("skipping unknown transformation", zap.Int("index", i), zap.String("key", entry.Key))
			span.AddEvent("unknown key skipped", trace.WithAttributes(attribute.String("pipeline.key", entry.Key)))
			e.metrics.keySkipped()
			res.Skipped = append(res.Skipped, entry.Key)
			continue
		}

		next, stepErr := e.step(ctx, i, t, current, entry.Value)
		if stepErr != nil {
			return nil, &StepError{Index: i, Key: entry.Key, Err: stepErr}
		}
		log.Debug("step applied",
			zap.Int("index", i),
			zap.String("key", entry.Key),
			zap.Int("width", next.Width()),
			zap.Int("height", next.Height()),
			zap.String("mode", string(next.Mode)),
		)
		current = next
		res.Applied = append(res.Applied, entry.Key)
	}

	res.Image = current
	return res, nil
}

func (e *Executor) step(ctx context.Context, index int, t transform.Transformation, img pix.Raster, params config.Value) (out pix.Raster, err error) {
	start := time.Now()
	_, span := e.tracer.Start(ctx, "transform."+t.Key(), trace.WithAttributes(
		attribute.Int("pipeline.index", index),
		attribute.String("pipeline.key", t.Key()),
	))
	defer func() {
		status := statusOK
		if err != nil {
			status = statusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("image.width", out.Width()),
				attribute.Int("image.height", out.Height()),
			)
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		e.metrics.stepFinished(t.Key(), status, time.Since(start))
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrTransformPanic, t.Key(), r)
		}
	}()

	return t.Apply(img, params)
}

// RunPipeline runs cfg against img with a default executor over registry and
// returns the transformed image and the original format.
func RunPipeline(ctx context.Context, registry *transform.Registry, img pix.Raster, cfg config.Value) (pix.Raster, string, error) {
	res, err := NewExecutor(registry).Run(ctx, img, cfg)
	if err != nil {
		return pix.Raster{}, "", err
	}
	return res.Image, res.OriginalFormat, nil
}
