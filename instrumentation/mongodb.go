package instrumentation

import (
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// MongoDBOptions configures the MONGODB instrumentation.
type MongoDBOptions struct {
	// EnhancedDatabaseReporting records the command document on each span.
	EnhancedDatabaseReporting bool `config:"enhanced_database_reporting"`
}

// MongoDB traces driver commands through a command monitor.
type MongoDB struct {
	monitor *event.CommandMonitor
}

func newMongoDB(p Providers, cfg map[string]any) (Instrumentation, error) {
	var opts MongoDBOptions
	if err := decode(cfg, &opts); err != nil {
		return nil, err
	}

	return &MongoDB{
		monitor: otelmongo.NewMonitor(
			otelmongo.WithTracerProvider(p.TracerProvider),
			otelmongo.WithCommandAttributeDisabled(!opts.EnhancedDatabaseReporting),
		),
	}, nil
}

// Kind implements Instrumentation.
func (m *MongoDB) Kind() Kind { return KindMongoDB }

// Monitor returns the command monitor to install on a client.
func (m *MongoDB) Monitor() *event.CommandMonitor {
	return m.monitor
}

// Apply installs the command monitor on opts and returns it.
func (m *MongoDB) Apply(opts *options.ClientOptions) *options.ClientOptions {
	return opts.SetMonitor(m.monitor)
}
