package instrumentation

import (
	"context"
	"fmt"
	"sort"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Attributes of resolver spans.
const (
	GraphQLFieldNameKey   = attribute.Key("graphql.field.name")
	GraphQLFieldPathKey   = attribute.Key("graphql.field.path")
	GraphQLFieldParentKey = attribute.Key("graphql.field.parent")
)

// GraphQLOptions configures the GRAPHQL instrumentation.
type GraphQLOptions struct {
	// Depth limits resolver spans to fields at most this deep. Zero or less
	// means unlimited.
	Depth int `config:"depth"`
	// IgnoreTrivialResolveSpans skips fields served by plain struct fields.
	IgnoreTrivialResolveSpans bool `config:"ignore_trivial_resolve_spans"`
	// AllowValues records operation variables on the operation span.
	AllowValues bool `config:"allow_values"`
}

// GraphQL is a gqlgen handler extension creating one span per operation and
// one per resolved field.
type GraphQL struct {
	opts   GraphQLOptions
	tracer trace.Tracer
}

var _ interface {
	graphql.HandlerExtension
	graphql.ResponseInterceptor
	graphql.FieldInterceptor
} = (*GraphQL)(nil)

func newGraphQL(p Providers, cfg map[string]any) (Instrumentation, error) {
	opts := GraphQLOptions{}
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}
	return &GraphQL{opts: opts, tracer: p.TracerProvider.Tracer(ScopeName)}, nil
}

// Kind implements Instrumentation.
func (g *GraphQL) Kind() Kind { return KindGraphQL }

// ExtensionName implements graphql.HandlerExtension.
func (g *GraphQL) ExtensionName() string {
	return "OpenTelemetry"
}

// Validate implements graphql.HandlerExtension.
func (g *GraphQL) Validate(graphql.ExecutableSchema) error {
	return nil
}

// InterceptResponse implements graphql.ResponseInterceptor.
func (g *GraphQL) InterceptResponse(ctx context.Context, next graphql.ResponseHandler) *graphql.Response {
	if !graphql.HasOperationContext(ctx) {
		return next(ctx)
	}
	oc := graphql.GetOperationContext(ctx)

	opType := "query"
	if oc.Operation != nil {
		opType = string(oc.Operation.Operation)
	}
	name := "graphql." + opType
	if oc.OperationName != "" {
		name += " " + oc.OperationName
	}

	attrs := []attribute.KeyValue{
		semconv.GraphqlOperationTypeKey.String(opType),
		semconv.GraphqlDocument(oc.RawQuery),
	}
	if oc.OperationName != "" {
		attrs = append(attrs, semconv.GraphqlOperationName(oc.OperationName))
	}
	if g.opts.AllowValues {
		attrs = append(attrs, variableAttributes(oc.Variables)...)
	}

	ctx, span := g.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	resp := next(ctx)
	if resp != nil && len(resp.Errors) > 0 {
		span.SetStatus(codes.Error, resp.Errors.Error())
	}
	return resp
}

// InterceptField implements graphql.FieldInterceptor.
func (g *GraphQL) InterceptField(ctx context.Context, next graphql.Resolver) (any, error) {
	fc := graphql.GetFieldContext(ctx)
	if fc == nil || fc.Field.Field == nil {
		return next(ctx)
	}
	if g.opts.IgnoreTrivialResolveSpans && !fc.IsMethod && !fc.IsResolver {
		return next(ctx)
	}

	path := fc.Path()
	if g.opts.Depth > 0 && fieldDepth(path) > g.opts.Depth {
		return next(ctx)
	}

	ctx, span := g.tracer.Start(ctx, "graphql.resolve "+fc.Field.Name,
		trace.WithAttributes(
			GraphQLFieldNameKey.String(fc.Field.Name),
			GraphQLFieldPathKey.String(path.String()),
			GraphQLFieldParentKey.String(fc.Object),
		),
	)
	defer span.End()

	res, err := next(ctx)
	if err != nil {
		recordError(span, err)
	}
	return res, err
}

// fieldDepth counts the named elements of path, ignoring list indexes.
func fieldDepth(path ast.Path) int {
	depth := 0
	for _, el := range path {
		if _, ok := el.(ast.PathName); ok {
			depth++
		}
	}
	return depth
}

func variableAttributes(vars map[string]any) []attribute.KeyValue {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute.String("graphql.variables."+k, fmt.Sprint(vars[k])))
	}
	return attrs
}
