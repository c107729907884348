// Package capability wraps research and generation providers with tracing, metrics and
// outbound rate limiting.
package capability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"nutribudget"
)

type Options struct {
	Tracer  trace.Tracer
	Meter   metric.Meter
	Limiter *rate.Limiter
}

// NewLimiter returns a limiter allowing rps calls per second with the given burst, or nil
// when rps is not positive.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), max(burst, 1))
}

type instrumented struct {
	capability string
	provider   string
	tracer     trace.Tracer
	limiter    *rate.Limiter

	calls    metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

func newInstrumented(capability, provider string, opts Options) *instrumented {
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(nutribudget.TracerNameCapability)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(nutribudget.TracerNameCapability)
	}

	in := &instrumented{
		capability: capability,
		provider:   provider,
		tracer:     opts.Tracer,
		limiter:    opts.Limiter,
	}
	in.calls, _ = opts.Meter.Int64Counter("capability_calls_total",
		metric.WithDescription("Total number of capability calls"))
	in.failures, _ = opts.Meter.Int64Counter("capability_failures_total",
		metric.WithDescription("Total number of capability calls that failed"))
	in.latency, _ = opts.Meter.Float64Histogram("capability_latency_seconds",
		metric.WithDescription("Time taken by capability calls in seconds"))
	return in
}

func (in *instrumented) run(ctx context.Context, inputBytes int, fn func(context.Context) (string, error)) (string, error) {
	ctx, span := in.tracer.Start(ctx, "Capability."+in.capability, trace.WithAttributes(
		attribute.String("capability.provider", in.provider),
		attribute.Int("capability.input_bytes", inputBytes),
	))
	defer span.End()

	attrs := metric.WithAttributes(
		attribute.String("capability", in.capability),
		attribute.String("provider", in.provider),
	)
	in.calls.Add(ctx, 1, attrs)

	if in.limiter != nil {
		if err := in.limiter.Wait(ctx); err != nil {
			in.failures.Add(ctx, 1, attrs)
			span.SetStatus(codes.Error, "rate limited")
			span.RecordError(err)
			return "", fmt.Errorf("%w: rate limit wait: %v", nutribudget.ErrCapabilityUnavailable, err)
		}
	}

	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)
	in.latency.Record(ctx, elapsed.Seconds(), attrs)

	if err != nil {
		in.failures.Add(ctx, 1, attrs)
		span.SetStatus(codes.Error, "capability call failed")
		span.RecordError(err)
		slog.Warn("LLM_CLIENT: Capability call failed",
			"capability", in.capability,
			"provider", in.provider,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return "", err
	}

	span.SetAttributes(attribute.Int("capability.output_bytes", len(out)))
	slog.Info("LLM_CLIENT: Capability call succeeded",
		"capability", in.capability,
		"provider", in.provider,
		"duration_ms", elapsed.Milliseconds(),
		"output_bytes", len(out))
	return out, nil
}

type researcher struct {
	next nutribudget.Researcher
	in   *instrumented
}

func (r *researcher) Research(ctx context.Context, query string) (string, error) {
	return r.in.run(ctx, len(query), func(ctx context.Context) (string, error) {
		return r.next.Research(ctx, query)
	})
}

type generator struct {
	next nutribudget.Generator
	in   *instrumented
}

func (g *generator) Generate(ctx context.Context, prompt string, shape *jsonschema.Schema) (string, error) {
	return g.in.run(ctx, len(prompt), func(ctx context.Context) (string, error) {
		return g.next.Generate(ctx, prompt, shape)
	})
}

// WrapResearcher instruments r. A nil r stays nil so that an absent capability is still
// seen as absent.
func WrapResearcher(r nutribudget.Researcher, provider string, opts Options) nutribudget.Researcher {
	if r == nil {
		return nil
	}
	return &researcher{next: r, in: newInstrumented("research", provider, opts)}
}

// WrapGenerator instruments g. A nil g stays nil.
func WrapGenerator(g nutribudget.Generator, provider string, opts Options) nutribudget.Generator {
	if g == nil {
		return nil
	}
	return &generator{next: g, in: newInstrumented("generate", provider, opts)}
}
