package instrumentation

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// EchoOptions configures the FASTIFY instrumentation.
type EchoOptions struct {
	// Service names the server in span attributes. Defaults to the session's
	// service name.
	Service string `config:"service"`
	// IgnorePaths are served without a span. A trailing "*" matches any suffix.
	IgnorePaths []string `config:"ignore_paths"`
}

// Echo traces requests served by an echo web framework instance. It is the
// FASTIFY kind: server spans named after the matched route.
type Echo struct {
	opts       EchoOptions
	middleware echo.MiddlewareFunc
}

func newEcho(p Providers, cfg map[string]any) (Instrumentation, error) {
	var opts EchoOptions
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}
	if opts.Service == "" {
		opts.Service = p.ServiceName
	}

	e := &Echo{opts: opts}
	e.middleware = otelecho.Middleware(opts.Service,
		otelecho.WithTracerProvider(p.TracerProvider),
		otelecho.WithMeterProvider(p.MeterProvider),
		otelecho.WithPropagators(p.Propagator),
		otelecho.WithSkipper(e.skip),
	)
	return e, nil
}

// Kind implements Instrumentation.
func (e *Echo) Kind() Kind { return KindFastify }

func (e *Echo) skip(c echo.Context) bool {
	return matchPath(e.opts.IgnorePaths, c.Request().URL.Path)
}

// Middleware returns the tracing middleware.
func (e *Echo) Middleware() echo.MiddlewareFunc {
	return e.middleware
}

// Instrument installs the tracing middleware on app.
func (e *Echo) Instrument(app *echo.Echo) {
	app.Use(e.middleware)
}
