package instrumentation

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPOptions configures the HTTP instrumentation.
type HTTPOptions struct {
	// IgnorePaths are served and sent without a span. A trailing "*" matches
	// any suffix.
	IgnorePaths []string `config:"ignore_paths"`
	// ServerName is reported as server.address on server spans.
	ServerName string `config:"server_name"`
}

// HTTP traces inbound and outbound HTTP through otelhttp.
type HTTP struct {
	opts      HTTPOptions
	providers Providers
}

func newHTTP(p Providers, cfg map[string]any) (Instrumentation, error) {
	var opts HTTPOptions
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}
	return &HTTP{opts: opts, providers: p}, nil
}

// Kind implements Instrumentation.
func (h *HTTP) Kind() Kind { return KindHTTP }

func (h *HTTP) options() []otelhttp.Option {
	opts := []otelhttp.Option{
		otelhttp.WithTracerProvider(h.providers.TracerProvider),
		otelhttp.WithMeterProvider(h.providers.MeterProvider),
		otelhttp.WithPropagators(h.providers.Propagator),
		otelhttp.WithFilter(h.filter),
	}
	if h.opts.ServerName != "" {
		opts = append(opts, otelhttp.WithServerName(h.opts.ServerName))
	}
	return opts
}

func (h *HTTP) filter(r *http.Request) bool {
	return !matchPath(h.opts.IgnorePaths, r.URL.Path)
}

// Handler wraps handler with a server span named operation.
func (h *HTTP) Handler(handler http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(handler, operation, h.options()...)
}

// Transport wraps base with client spans. A nil base uses
// http.DefaultTransport.
func (h *HTTP) Transport(base http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(base, h.options()...)
}

// Client returns an HTTP client whose requests are traced.
func (h *HTTP) Client() *http.Client {
	return &http.Client{Transport: h.Transport(nil)}
}

func matchPath(patterns []string, path string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if p == path {
			return true
		}
	}
	return false
}
