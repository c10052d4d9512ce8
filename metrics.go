package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Request metric names and attributes.
const (
	RequestDurationMetric = "http.request.duration"
	RequestCountMetric    = "http.request.count"

	HTTPMethodKey     = attribute.Key("http.method")
	HTTPRouteKey      = attribute.Key("http.route")
	HTTPStatusCodeKey = attribute.Key("http.status_code")
)

// Request is the request side of a completed exchange.
type Request interface {
	Method() string
	// RouterPath is the matched route pattern, e.g. /users/:id.
	RouterPath() string
}

// Reply is the response side of a completed exchange.
type Reply interface {
	StatusCode() int
	// ResponseTime is the elapsed handling time in milliseconds.
	ResponseTime() float64
}

// ResponseHook runs once per completed request.
type ResponseHook func(ctx context.Context, req Request, reply Reply)

// HookRegistrar is a web framework accepting response lifecycle hooks.
type HookRegistrar interface {
	OnResponse(hook ResponseHook)
}

// InstrumentFastifyMetrics registers one response hook on app. Every
// completed request adds one to http.request.count and records its response
// time in http.request.duration, both tagged with method, route and status
// code.
func (s *Session) InstrumentFastifyMetrics(app HookRegistrar) error {
	meter := s.Meter()

	duration, err := meter.Float64Histogram(RequestDurationMetric,
		metric.WithDescription("Duration of HTTP requests."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s histogram: %w", RequestDurationMetric, err)
	}

	count, err := meter.Int64Counter(RequestCountMetric,
		metric.WithDescription("Number of HTTP requests."),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s counter: %w", RequestCountMetric, err)
	}

	app.OnResponse(func(ctx context.Context, req Request, reply Reply) {
		attrs := metric.WithAttributeSet(attribute.NewSet(
			HTTPMethodKey.String(req.Method()),
			HTTPRouteKey.String(req.RouterPath()),
			HTTPStatusCodeKey.Int(reply.StatusCode()),
		))
		count.Add(ctx, 1, attrs)
		duration.Record(ctx, reply.ResponseTime(), attrs)
	})

	return nil
}

// EchoHooks adapts an echo server to HookRegistrar. Each registered hook
// becomes a middleware that runs after the handler returns. A handler error
// is written through c.Error so the recorded status is final, then returned
// to the middlewares registered before, as otelecho does. The default echo
// error handler skips responses that are already committed.
type EchoHooks struct {
	App *echo.Echo
}

// OnResponse implements HookRegistrar.
func (h EchoHooks) OnResponse(hook ResponseHook) {
	h.App.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			hook(c.Request().Context(), echoRequest{c}, echoReply{c: c, elapsed: time.Since(start)})
			return err
		}
	})
}

type echoRequest struct {
	c echo.Context
}

func (r echoRequest) Method() string     { return r.c.Request().Method }
func (r echoRequest) RouterPath() string { return r.c.Path() }

type echoReply struct {
	c       echo.Context
	elapsed time.Duration
}

func (r echoReply) StatusCode() int { return r.c.Response().Status }

func (r echoReply) ResponseTime() float64 {
	return float64(r.elapsed) / float64(time.Millisecond)
}
