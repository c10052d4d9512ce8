package instrumentation

import (
	"context"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// MongooseOptions configures the MONGOOSE instrumentation.
type MongooseOptions struct {
	// RequireParentSpan skips operations that have no active span.
	RequireParentSpan bool `config:"require_parent_span"`
	// Database is reported as db.namespace.
	Database string `config:"database"`
}

// Mongoose traces model-level operations of an object document mapper, one
// level above the driver commands the MONGODB kind records.
type Mongoose struct {
	opts   MongooseOptions
	tracer trace.Tracer
}

func newMongoose(p Providers, cfg map[string]any) (Instrumentation, error) {
	var opts MongooseOptions
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}
	return &Mongoose{opts: opts, tracer: p.TracerProvider.Tracer(ScopeName)}, nil
}

// Kind implements Instrumentation.
func (m *Mongoose) Kind() Kind { return KindMongoose }

// Operation runs fn inside a span named "mongoose.<model>.<op>".
func (m *Mongoose) Operation(ctx context.Context, model, op string, fn func(ctx context.Context) error) error {
	if m.opts.RequireParentSpan && !trace.SpanContextFromContext(ctx).IsValid() {
		return fn(ctx)
	}

	ctx, span := m.tracer.Start(ctx, "mongoose."+model+"."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBCollectionName(model),
			semconv.DBOperationName(op),
		),
	)
	defer span.End()

	if m.opts.Database != "" {
		span.SetAttributes(semconv.DBNamespace(m.opts.Database))
	}

	if err := fn(ctx); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}
