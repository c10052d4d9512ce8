package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/99designs/gqlgen/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func operationContext() context.Context {
	return graphql.WithOperationContext(context.Background(), &graphql.OperationContext{
		RawQuery:      "query GetUser($id: ID!) { user(id: $id) { name } }",
		OperationName: "GetUser",
		Variables:     map[string]any{"id": "42"},
		Operation:     &ast.OperationDefinition{Operation: ast.Query, Name: "GetUser"},
	})
}

func fieldContext(ctx context.Context, parent *graphql.FieldContext, object, name string, resolver bool) (context.Context, *graphql.FieldContext) {
	fc := &graphql.FieldContext{
		Parent:     parent,
		Object:     object,
		Field:      graphql.CollectedField{Field: &ast.Field{Name: name, Alias: name}},
		IsResolver: resolver,
	}
	return graphql.WithFieldContext(ctx, fc), fc
}

func TestGraphQL_InterceptResponse(t *testing.T) {
	p, rec := newTestProviders(t)
	inst, err := New(KindGraphQL, p, map[string]any{"allow_values": true})
	require.NoError(t, err)
	g := inst.(*GraphQL)

	resp := g.InterceptResponse(operationContext(), func(ctx context.Context) *graphql.Response {
		return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("user not found")}}
	})
	require.NotNil(t, resp)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "graphql.query GetUser", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	name, _ := attr(spans[0], semconv.GraphqlOperationNameKey)
	assert.Equal(t, "GetUser", name.AsString())
	id, _ := attr(spans[0], "graphql.variables.id")
	assert.Equal(t, "42", id.AsString())
}

func TestGraphQL_InterceptResponseWithoutOperation(t *testing.T) {
	p, rec := newTestProviders(t)
	inst, err := New(KindGraphQL, p, nil)
	require.NoError(t, err)

	called := false
	inst.(*GraphQL).InterceptResponse(context.Background(), func(context.Context) *graphql.Response {
		called = true
		return nil
	})
	assert.True(t, called)
	assert.Empty(t, rec.Ended())
}

func TestGraphQL_InterceptField(t *testing.T) {
	p, rec := newTestProviders(t)
	inst, err := New(KindGraphQL, p, map[string]any{
		"depth":                        1,
		"ignore_trivial_resolve_spans": true,
	})
	require.NoError(t, err)
	g := inst.(*GraphQL)

	ctx, user := fieldContext(operationContext(), nil, "Query", "user", true)
	res, err := g.InterceptField(ctx, func(context.Context) (any, error) { return "u", nil })
	require.NoError(t, err)
	assert.Equal(t, "u", res)

	// Trivial field.
	trivialCtx, _ := fieldContext(ctx, user, "User", "name", false)
	_, err = g.InterceptField(trivialCtx, func(context.Context) (any, error) { return "n", nil })
	require.NoError(t, err)

	// Too deep.
	deepCtx, _ := fieldContext(ctx, user, "User", "friends", true)
	_, err = g.InterceptField(deepCtx, func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "graphql.resolve user", spans[0].Name())
	path, _ := attr(spans[0], GraphQLFieldPathKey)
	assert.Equal(t, "user", path.AsString())
	parent, _ := attr(spans[0], GraphQLFieldParentKey)
	assert.Equal(t, "Query", parent.AsString())
}

func TestGraphQL_InterceptFieldError(t *testing.T) {
	p, rec := newTestProviders(t)
	inst, err := New(KindGraphQL, p, nil)
	require.NoError(t, err)

	ctx, _ := fieldContext(operationContext(), nil, "Query", "user", true)
	boom := errors.New("resolver failed")
	_, err = inst.(*GraphQL).InterceptField(ctx, func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestFieldDepth(t *testing.T) {
	assert.Equal(t, 2, fieldDepth(ast.Path{ast.PathName("users"), ast.PathIndex(0), ast.PathName("name")}))
	assert.Equal(t, 0, fieldDepth(nil))
}
