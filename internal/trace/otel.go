package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InitOTelProvider installs a stdout-backed SDK TracerProvider as the
// process-global provider, so OTelSink's otel.Tracer(...) calls produce
// real, exported spans instead of going to the no-op default provider.
// The caller must invoke the returned shutdown func once the run
// completes, which flushes any spans still buffered in the batcher.
func InitOTelProvider() (shutdown func(context.Context) error, err error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("trace: creating stdout span exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// OTelSink emits one span per rewrite step, letting a run be inspected
// with any OpenTelemetry-compatible backend alongside (or instead of) the
// JSONL sink. It is a second, independent Sink implementation — the
// runtime fans events out to both without either depending on the other.
type OTelSink struct {
	tracer trace.Tracer
}

// NewOTelSink builds a sink against the given tracer name, using
// whatever TracerProvider the process has configured via
// otel.SetTracerProvider (a no-op provider if none was set, which is a
// safe default for runs that don't care about OTel).
func NewOTelSink(tracerName string) *OTelSink {
	return &OTelSink{tracer: otel.Tracer(tracerName)}
}

func (s *OTelSink) Record(r Record) error {
	_, span := s.tracer.Start(context.Background(), fmt.Sprintf("step:%s", r.Rule))
	span.SetAttributes(
		attribute.Int("termweave.step", r.Step),
		attribute.String("termweave.rule", r.Rule),
		attribute.String("termweave.before", string(r.Before)),
		attribute.String("termweave.before_sym", r.BeforeSym),
		attribute.Int("termweave.before_scale", r.BeforeScale),
		attribute.Int("termweave.scale", r.Scale),
		attribute.StringSlice("termweave.after", idsToStrings(r.After)),
	)
	span.End()
	return nil
}

func (s *OTelSink) Close() error { return nil }

func idsToStrings[T fmt.Stringer](ids []T) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
