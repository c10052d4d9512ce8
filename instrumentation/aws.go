package instrumentation

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
)

// AWSSDKOptions configures the AWS_SDK instrumentation.
type AWSSDKOptions struct {
	// DisablePropagation stops trace headers from being sent to AWS.
	DisablePropagation bool `config:"disable_propagation"`
}

// AWSSDK traces AWS SDK v2 API calls through otelaws middlewares.
type AWSSDK struct {
	opts []otelaws.Option
}

func newAWSSDK(p Providers, cfg map[string]any) (Instrumentation, error) {
	var opts AWSSDKOptions
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}

	propagator := p.Propagator
	if opts.DisablePropagation {
		propagator = propagation.NewCompositeTextMapPropagator()
	}

	return &AWSSDK{
		opts: []otelaws.Option{
			otelaws.WithTracerProvider(p.TracerProvider),
			otelaws.WithTextMapPropagator(propagator),
		},
	}, nil
}

// Kind implements Instrumentation.
func (a *AWSSDK) Kind() Kind { return KindAWSSDK }

// Apply appends the tracing middlewares to cfg. Clients built from cfg
// afterwards are traced.
func (a *AWSSDK) Apply(cfg *aws.Config) {
	otelaws.AppendMiddlewares(&cfg.APIOptions, a.opts...)
}
