// Package app declares what an application's options must provide to be
// run by infra/app.
package app

import "github.com/kart-io/mongokit/pkg/app/cliflag"

// CliOptions is implemented by the top level options of a command.
type CliOptions interface {
	// Flags returns the flags grouped by section.
	Flags() cliflag.NamedFlagSets
	// Complete fills in defaults after flags and config are applied.
	Complete() error
	// Validate runs after Complete.
	Validate() error
}

// PrintableOptions is implemented by options that can print themselves
// with secrets redacted.
type PrintableOptions interface {
	String() string
}
