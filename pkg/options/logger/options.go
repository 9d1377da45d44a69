// Package logger holds the log.* options and initialises the global
// kart-io/logger instance from them.
package logger

import (
	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"
)

// Options wraps option.LogOption.
type Options struct {
	*option.LogOption
}

// NewOptions creates Options with the logger library defaults.
func NewOptions() *Options {
	return &Options{LogOption: option.DefaultLogOption()}
}

// AddFlags adds the log.* flags to fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Engine, "log.engine", o.Engine, "Logging engine (zap|slog).")
	fs.StringVar(&o.Level, "log.level", o.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL).")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log format (json|console).")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "Log output paths.")
	fs.BoolVar(&o.Development, "log.development", o.Development, "Enable development mode.")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Disable caller annotation.")
	fs.BoolVar(&o.DisableStacktrace, "log.disable-stacktrace", o.DisableStacktrace, "Disable stack traces on errors.")
}

// Complete is a no-op.
func (o *Options) Complete() error {
	return nil
}

// Validate delegates to the logger library.
func (o *Options) Validate() error {
	return o.LogOption.Validate()
}

// Init builds a logger and installs it as the global one.
func (o *Options) Init() (core.Logger, error) {
	log, err := logger.New(o.LogOption)
	if err != nil {
		return nil, err
	}
	logger.SetGlobal(log)
	return log, nil
}
