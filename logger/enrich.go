package logger

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/trace"
)

// Field names written by the TraceContext enricher.
const (
	TraceIDKey    = "trace_id"
	SpanIDKey     = "span_id"
	TraceFlagsKey = "trace_flags"

	// The OTel transport consumes the canonical keys into the record's trace
	// context and drops them from the attributes. These copies survive it.
	TraceIDAliasKey = "traceId"
	SpanIDAliasKey  = "spanId"
)

// Fields holds the attributes an enrichment pipeline produced for one record.
type Fields map[string]interface{}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Omit deletes keys the record already carries and returns f. Fields set at
// the call site take priority over enrichment.
func (f Fields) Omit(keys ...string) Fields {
	for _, k := range keys {
		delete(f, k)
	}
	return f
}

// Enricher adds fields to a record at emission time.
type Enricher interface {
	Enrich(ctx context.Context, fields Fields)
}

// EnricherFunc adapts a function to the Enricher interface.
type EnricherFunc func(ctx context.Context, fields Fields)

// Enrich implements Enricher.
func (f EnricherFunc) Enrich(ctx context.Context, fields Fields) {
	f(ctx, fields)
}

// Pipeline is an ordered list of enrichers applied left to right. A later
// step overwrites keys set by an earlier one.
type Pipeline []Enricher

// NewPipeline returns the standard pipeline: trace context first, then the
// attributes returned by fn, then the static attributes. Nil fn or empty
// static attributes skip their step.
func NewPipeline(fn func() map[string]interface{}, static map[string]interface{}) Pipeline {
	p := Pipeline{TraceContext()}
	if fn != nil {
		p = append(p, AttributesFunc(fn))
	}
	if len(static) > 0 {
		p = append(p, StaticAttributes(static))
	}
	return p
}

// Fields runs every enricher against ctx and returns the merged result.
func (p Pipeline) Fields(ctx context.Context) Fields {
	if ctx == nil {
		ctx = context.Background()
	}
	fields := Fields{}
	for _, e := range p {
		e.Enrich(ctx, fields)
	}
	return fields
}

// TraceContext attaches the ids of the span active in ctx, if it is valid.
func TraceContext() Enricher {
	return EnricherFunc(func(ctx context.Context, fields Fields) {
		sc := trace.SpanContextFromContext(ctx)
		if !sc.IsValid() {
			return
		}
		traceID := sc.TraceID().String()
		spanID := sc.SpanID().String()

		fields[TraceIDKey] = traceID
		fields[SpanIDKey] = spanID
		fields[TraceFlagsKey] = sc.TraceFlags().String()
		fields[TraceIDAliasKey] = traceID
		fields[SpanIDAliasKey] = spanID
	})
}

// AttributesFunc merges the map returned by fn, called once per record.
func AttributesFunc(fn func() map[string]interface{}) Enricher {
	return EnricherFunc(func(_ context.Context, fields Fields) {
		for k, v := range fn() {
			fields[k] = v
		}
	})
}

// StaticAttributes merges a fixed set of attributes.
func StaticAttributes(attrs map[string]interface{}) Enricher {
	return EnricherFunc(func(_ context.Context, fields Fields) {
		for k, v := range attrs {
			fields[k] = v
		}
	})
}
