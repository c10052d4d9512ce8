// Package instrumentation holds the registry of library instrumentations a
// telemetry session can activate. Each instrumentation is bound to the
// session's providers and exposes the hook its library accepts.
package instrumentation

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownKind is returned for a kind that has no registered factory.
var ErrUnknownKind = errors.New("unknown instrumentation kind")

// Kind identifies an instrumentation.
type Kind string

const (
	KindNet      Kind = "NET"
	KindDNS      Kind = "DNS"
	KindHTTP     Kind = "HTTP"
	KindFastify  Kind = "FASTIFY"
	KindMongoDB  Kind = "MONGODB"
	KindMongoose Kind = "MONGOOSE"
	KindRabbitMQ Kind = "RABBITMQ"
	KindAWSSDK   Kind = "AWS_SDK"
	KindGraphQL  Kind = "GRAPHQL"
	KindPostgres Kind = "POSTGRES"
)

// Defaults returns the kinds every session activates, in order.
func Defaults() []Kind {
	return []Kind{KindNet, KindDNS, KindHTTP}
}

// OptIn returns the kinds a session activates only when enabled, in their
// stable order.
func OptIn() []Kind {
	return []Kind{
		KindFastify,
		KindMongoDB,
		KindMongoose,
		KindRabbitMQ,
		KindAWSSDK,
		KindGraphQL,
		KindPostgres,
	}
}

// Providers are the telemetry providers an instrumentation reports through.
// Nil fields fall back to the otel globals.
type Providers struct {
	ServiceName    string
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Propagator     propagation.TextMapPropagator
}

func (p Providers) withDefaults() Providers {
	if p.TracerProvider == nil {
		p.TracerProvider = otel.GetTracerProvider()
	}
	if p.MeterProvider == nil {
		p.MeterProvider = otel.GetMeterProvider()
	}
	if p.Propagator == nil {
		p.Propagator = otel.GetTextMapPropagator()
	}
	return p
}

// Instrumentation is an activated library instrumentation.
type Instrumentation interface {
	Kind() Kind
}

// Factory builds an instrumentation from its providers and raw options.
type Factory func(p Providers, cfg map[string]any) (Instrumentation, error)

var registry = map[Kind]Factory{
	KindNet:      newNet,
	KindDNS:      newDNS,
	KindHTTP:     newHTTP,
	KindFastify:  newEcho,
	KindMongoDB:  newMongoDB,
	KindMongoose: newMongoose,
	KindRabbitMQ: newRabbitMQ,
	KindAWSSDK:   newAWSSDK,
	KindGraphQL:  newGraphQL,
	KindPostgres: newPostgres,
}

// Registered reports whether kind has a factory.
func Registered(kind Kind) bool {
	_, ok := registry[kind]
	return ok
}

// New builds the instrumentation registered for kind.
func New(kind Kind, p Providers, cfg map[string]any) (Instrumentation, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	inst, err := factory(p.withDefaults(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s instrumentation: %w", kind, err)
	}
	return inst, nil
}

// Find returns the first instrumentation of type T.
func Find[T Instrumentation](list []Instrumentation) (T, bool) {
	for _, inst := range list {
		if t, ok := inst.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// decode maps raw options onto a typed options struct using its config tags.
func decode(in map[string]any, out any) error {
	if len(in) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// recordError marks span as failed with err.
func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
