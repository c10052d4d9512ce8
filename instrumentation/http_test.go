package instrumentation

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestHTTP_HandlerAndTransport(t *testing.T) {
	p, rec := newTestProviders(t)
	inst, err := New(KindHTTP, p, map[string]any{
		"ignore_paths": []string{"/healthz", "/internal/*"},
	})
	require.NoError(t, err)
	h := inst.(*HTTP)

	var serverTraceID trace.TraceID
	srv := httptest.NewServer(h.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverTraceID = trace.SpanContextFromContext(r.Context()).TraceID()
		w.WriteHeader(http.StatusNoContent)
	}), "api"))
	defer srv.Close()

	client := h.Client()

	resp, err := client.Get(srv.URL + "/users")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The server span may end after the client has read the response.
	require.Eventually(t, func() bool { return len(rec.Ended()) == 2 }, time.Second, 10*time.Millisecond)
	spans := rec.Ended()

	var server, clientSpan int
	for _, s := range spans {
		switch s.SpanKind() {
		case trace.SpanKindServer:
			server++
			assert.Equal(t, serverTraceID, s.SpanContext().TraceID())
		case trace.SpanKindClient:
			clientSpan++
			assert.Equal(t, serverTraceID, s.SpanContext().TraceID(), "trace context propagates to the server")
		}
	}
	assert.Equal(t, 1, server)
	assert.Equal(t, 1, clientSpan)

	rec.Reset()
	for _, path := range []string{"/healthz", "/internal/metrics"} {
		resp, err := client.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Empty(t, rec.Ended(), "ignored paths are not traced")
}

func TestMatchPath(t *testing.T) {
	patterns := []string{"/healthz", "/static/*"}

	assert.True(t, matchPath(patterns, "/healthz"))
	assert.True(t, matchPath(patterns, "/static/app.js"))
	assert.False(t, matchPath(patterns, "/healthz/deep"))
	assert.False(t, matchPath(patterns, "/api"))
	assert.False(t, matchPath(nil, "/api"))
}
