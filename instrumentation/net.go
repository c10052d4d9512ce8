package instrumentation

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of spans created by this package.
const ScopeName = "github.com/ekristen/go-otelkit/instrumentation"

// NetOptions configures the NET instrumentation.
type NetOptions struct {
	Timeout   time.Duration `config:"timeout"`
	KeepAlive time.Duration `config:"keep_alive"`
}

// Net traces outbound connection establishment.
type Net struct {
	tracer trace.Tracer
	dialer *net.Dialer
}

func newNet(p Providers, cfg map[string]any) (Instrumentation, error) {
	var opts NetOptions
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}

	return &Net{
		tracer: p.TracerProvider.Tracer(ScopeName),
		dialer: &net.Dialer{Timeout: opts.Timeout, KeepAlive: opts.KeepAlive},
	}, nil
}

// Kind implements Instrumentation.
func (n *Net) Kind() Kind { return KindNet }

// DialContext connects to address and records a net.connect span. It matches
// the DialContext field of http.Transport.
func (n *Net) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	ctx, span := n.tracer.Start(ctx, "net.connect",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(
			[]attribute.KeyValue{semconv.NetworkTransportKey.String(network)},
			serverAttributes(address)...,
		)...),
	)
	defer span.End()

	conn, err := n.dialer.DialContext(ctx, network, address)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	if addr := conn.RemoteAddr(); addr != nil {
		span.SetAttributes(semconv.NetworkPeerAddress(addr.String()))
	}
	return conn, nil
}

func serverAttributes(address string) []attribute.KeyValue {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return []attribute.KeyValue{semconv.ServerAddress(address)}
	}

	attrs := []attribute.KeyValue{semconv.ServerAddress(host)}
	if p, err := strconv.Atoi(port); err == nil {
		attrs = append(attrs, semconv.ServerPort(p))
	}
	return attrs
}
