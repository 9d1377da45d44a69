// Package component holds the contract shared by the options of storage
// components such as mongodb.Options.
package component

import "github.com/spf13/pflag"

// ConfigOptions is implemented by every component's options.
//
// Callers run Complete, then Validate, before building the component.
type ConfigOptions interface {
	// Complete fills in derived values and defaults taken from the environment.
	Complete() error

	// Validate reports the first invalid option.
	Validate() error

	// AddFlags registers the options on fs. namePrefix ends with a dot,
	// for example "mongodb.".
	AddFlags(fs *pflag.FlagSet, namePrefix string)
}
