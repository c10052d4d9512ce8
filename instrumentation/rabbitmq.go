package instrumentation

import (
	"context"
	"maps"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// RabbitMQOptions configures the RABBITMQ instrumentation.
type RabbitMQOptions struct {
	// UseLinksForConsume links consumer spans to the producer span instead of
	// making them its children.
	UseLinksForConsume bool `config:"use_links_for_consume"`
}

// Publisher is the publishing half of *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQ traces AMQP 0-9-1 publishing and consumption, propagating the
// trace context in message headers.
type RabbitMQ struct {
	opts       RabbitMQOptions
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

func newRabbitMQ(p Providers, cfg map[string]any) (Instrumentation, error) {
	var opts RabbitMQOptions
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}
	return &RabbitMQ{
		opts:       opts,
		tracer:     p.TracerProvider.Tracer(ScopeName),
		propagator: p.Propagator,
	}, nil
}

// Kind implements Instrumentation.
func (r *RabbitMQ) Kind() Kind { return KindRabbitMQ }

// Publish sends msg through ch inside a producer span and injects the span
// into the message headers.
func (r *RabbitMQ) Publish(ctx context.Context, ch Publisher, exchange, key string, msg amqp.Publishing) error {
	ctx, span := r.tracer.Start(ctx, destination(exchange)+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(destination(exchange)),
			semconv.MessagingRabbitmqDestinationRoutingKey(key),
		),
	)
	defer span.End()

	if msg.MessageId != "" {
		span.SetAttributes(semconv.MessagingMessageID(msg.MessageId))
	}

	// msg is a copy but Headers is shared with the caller.
	msg.Headers = maps.Clone(msg.Headers)
	if msg.Headers == nil {
		msg.Headers = amqp.Table{}
	}
	r.propagator.Inject(ctx, HeaderCarrier(msg.Headers))

	if err := ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// Consume starts a consumer span for d. The caller ends the span once the
// delivery is processed.
func (r *RabbitMQ) Consume(ctx context.Context, d amqp.Delivery) (context.Context, trace.Span) {
	remote := r.propagator.Extract(ctx, HeaderCarrier(d.Headers))

	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(destination(d.Exchange)),
			semconv.MessagingRabbitmqDestinationRoutingKey(d.RoutingKey),
		),
	}
	if d.MessageId != "" {
		opts = append(opts, trace.WithAttributes(semconv.MessagingMessageID(d.MessageId)))
	}

	parent := remote
	if r.opts.UseLinksForConsume {
		if sc := trace.SpanContextFromContext(remote); sc.IsValid() {
			opts = append(opts, trace.WithLinks(trace.Link{SpanContext: sc}))
		}
		parent = ctx
	}

	return r.tracer.Start(parent, destination(d.Exchange)+" process", opts...)
}

func destination(exchange string) string {
	if exchange == "" {
		return "<default>"
	}
	return exchange
}

// HeaderCarrier adapts amqp.Table to propagation.TextMapCarrier.
type HeaderCarrier amqp.Table

// Get returns the value stored for key.
func (c HeaderCarrier) Get(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Set stores value under key.
func (c HeaderCarrier) Set(key, value string) {
	c[key] = value
}

// Keys lists the stored keys.
func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
