// Package options contains flags and options for initializing the tree-app server.
package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	cliflag "github.com/kart-io/mongokit/pkg/app/cliflag"
	"github.com/kart-io/mongokit/pkg/component/mongodb"
	"github.com/kart-io/mongokit/pkg/infra/tracing"
	"github.com/kart-io/mongokit/pkg/options"
	logopts "github.com/kart-io/mongokit/pkg/options/logger"
	httpopts "github.com/kart-io/mongokit/pkg/options/server/http"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// MongoDBOptions configures the database connection.
	MongoDBOptions *mongodb.Options `json:"mongodb" mapstructure:"mongodb"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions configures span export.
	TracingOptions *tracing.Options `json:"tracing" mapstructure:"tracing"`

	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"server" mapstructure:"server"`

	// SkipIndexes disables index creation on startup.
	SkipIndexes bool `json:"skip-indexes" mapstructure:"skip-indexes"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	mongo := mongodb.NewOptions()
	mongo.Database = "tree-db"

	trace := tracing.NewOptions()
	trace.ServiceName = "tree-app"

	return &ServerOptions{
		MongoDBOptions: mongo,
		LogOptions:     logopts.NewOptions(),
		TracingOptions: trace,
		HTTPOptions:    httpopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.MongoDBOptions.AddFlags(fss.FlagSet("mongodb"), options.Join("mongodb"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.HTTPOptions.AddFlags(fss.FlagSet("server"), "server")

	fs := fss.FlagSet("misc")
	fs.BoolVar(&o.SkipIndexes, "skip-indexes", o.SkipIndexes, "Do not create collection indexes on startup.")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	return utilerrors.NewAggregate([]error{
		o.MongoDBOptions.Complete(),
		o.LogOptions.Complete(),
		o.TracingOptions.Complete(),
	})
}

// Validate checks ServerOptions and returns every failure at once.
func (o *ServerOptions) Validate() error {
	errs := []error{
		o.MongoDBOptions.Validate(),
		o.LogOptions.Validate(),
		o.TracingOptions.Validate(),
	}
	errs = append(errs, o.HTTPOptions.Validate()...)
	return utilerrors.NewAggregate(errs)
}
