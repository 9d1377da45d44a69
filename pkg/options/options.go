// Package options defines the generic options interface and common utilities.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join joins prefixes with dots and adds a trailing dot to a non-empty
// result, so Join("mongodb") + "host" is the flag "mongodb.host".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions is implemented by option groups that report every invalid field
// at once, such as the server.* listener options.
type IOptions interface {
	// Validate returns all validation failures.
	Validate() []error

	// AddFlags adds flags related to given flagset.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
