package instrumentation

import (
	"context"
	"net"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DNSHostnameKey holds the name being resolved.
const DNSHostnameKey = attribute.Key("dns.question.name")

// DNSOptions configures the DNS instrumentation.
type DNSOptions struct {
	// IgnoreHostnames are resolved without a span. Matching is case-insensitive.
	IgnoreHostnames []string `config:"ignore_hostnames"`
}

// DNS traces name resolution.
type DNS struct {
	tracer   trace.Tracer
	resolver *net.Resolver
	ignore   map[string]struct{}
}

func newDNS(p Providers, cfg map[string]any) (Instrumentation, error) {
	var opts DNSOptions
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}

	ignore := make(map[string]struct{}, len(opts.IgnoreHostnames))
	for _, h := range opts.IgnoreHostnames {
		ignore[strings.ToLower(h)] = struct{}{}
	}

	return &DNS{
		tracer:   p.TracerProvider.Tracer(ScopeName),
		resolver: net.DefaultResolver,
		ignore:   ignore,
	}, nil
}

// Kind implements Instrumentation.
func (d *DNS) Kind() Kind { return KindDNS }

// LookupHost resolves host to its addresses.
func (d *DNS) LookupHost(ctx context.Context, host string) ([]string, error) {
	if d.ignored(host) {
		return d.resolver.LookupHost(ctx, host)
	}

	ctx, span := d.start(ctx, host)
	defer span.End()

	addrs, err := d.resolver.LookupHost(ctx, host)
	recordLookup(span, len(addrs), err)
	return addrs, err
}

// LookupIPAddr resolves host to its IP addresses.
func (d *DNS) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	if d.ignored(host) {
		return d.resolver.LookupIPAddr(ctx, host)
	}

	ctx, span := d.start(ctx, host)
	defer span.End()

	addrs, err := d.resolver.LookupIPAddr(ctx, host)
	recordLookup(span, len(addrs), err)
	return addrs, err
}

func (d *DNS) ignored(host string) bool {
	_, ok := d.ignore[strings.ToLower(host)]
	return ok
}

func (d *DNS) start(ctx context.Context, host string) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, "dns.lookup",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(DNSHostnameKey.String(host)),
	)
}

func recordLookup(span trace.Span, answers int, err error) {
	if err != nil {
		recordError(span, err)
		return
	}
	span.SetAttributes(attribute.Int("dns.answer.count", answers))
}
