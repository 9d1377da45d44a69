// Package http holds the HTTP listener options of the tree application.
package http

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/mongokit/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains HTTP server configuration.
type Options struct {
	Addr         string        `json:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	IdleTimeout  time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`
	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// AddFlags adds the flags under the joined prefixes, "server" gives --server.addr.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Addr, p+"addr", o.Addr, "HTTP bind address and port.")
	fs.DurationVar(&o.ReadTimeout, p+"read-timeout", o.ReadTimeout, "Timeout for reading the entire request.")
	fs.DurationVar(&o.WriteTimeout, p+"write-timeout", o.WriteTimeout, "Timeout for writing the response.")
	fs.DurationVar(&o.IdleTimeout, p+"idle-timeout", o.IdleTimeout, "Keep-alive idle timeout.")
	fs.DurationVar(&o.ShutdownTimeout, p+"shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")
}

// Validate returns every invalid field.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if _, _, err := net.SplitHostPort(o.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.addr %q: %w", o.Addr, err))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read-timeout must be positive"))
	}
	if o.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write-timeout must be positive"))
	}
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown-timeout must be positive"))
	}
	return errs
}
