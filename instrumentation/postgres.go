package instrumentation

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// RowsAffectedKey holds the row count reported by the server.
const RowsAffectedKey = attribute.Key("db.response.rows_affected")

// PostgresOptions configures the POSTGRES instrumentation.
type PostgresOptions struct {
	// IncludeStatement records the SQL text on each span.
	IncludeStatement bool `config:"include_statement"`
	// RequireParentSpan skips queries that have no active span.
	RequireParentSpan bool `config:"require_parent_span"`
}

// Postgres traces pgx queries. It implements pgx.QueryTracer.
type Postgres struct {
	opts   PostgresOptions
	tracer trace.Tracer
}

var _ pgx.QueryTracer = (*Postgres)(nil)

func newPostgres(p Providers, cfg map[string]any) (Instrumentation, error) {
	var opts PostgresOptions
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}
	return &Postgres{opts: opts, tracer: p.TracerProvider.Tracer(ScopeName)}, nil
}

// Kind implements Instrumentation.
func (p *Postgres) Kind() Kind { return KindPostgres }

// Apply installs the tracer on cfg.
func (p *Postgres) Apply(cfg *pgx.ConnConfig) {
	cfg.Tracer = p
}

type postgresSpanKey struct{}

// TraceQueryStart implements pgx.QueryTracer.
func (p *Postgres) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if p.opts.RequireParentSpan && !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}

	op := operation(data.SQL)
	attrs := []attribute.KeyValue{
		semconv.DBSystemPostgreSQL,
		semconv.DBOperationName(op),
	}
	if conn != nil {
		cfg := conn.Config()
		attrs = append(attrs,
			semconv.DBNamespace(cfg.Database),
			semconv.ServerAddress(cfg.Host),
			semconv.ServerPort(int(cfg.Port)),
		)
	}
	if p.opts.IncludeStatement {
		attrs = append(attrs, semconv.DBQueryText(data.SQL))
	}

	ctx, span := p.tracer.Start(ctx, "pg.query:"+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return context.WithValue(ctx, postgresSpanKey{}, span)
}

// TraceQueryEnd implements pgx.QueryTracer.
func (p *Postgres) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(postgresSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if data.Err != nil {
		recordError(span, data.Err)
		return
	}
	span.SetAttributes(RowsAffectedKey.Int64(data.CommandTag.RowsAffected()))
}

// operation returns the upper-cased first keyword of sql.
func operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}
