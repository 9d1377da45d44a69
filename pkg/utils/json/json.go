// Package json is the JSON codec used by HTTP responses.
//
// sonic is used on amd64 and arm64; other architectures fall back to
// encoding/json. Values implementing json.Marshaler (primitive.ObjectID,
// model.UTCDatetime) are honoured by both.
package json

import (
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

// RawMessage is a raw encoded JSON value.
type RawMessage = stdjson.RawMessage

// Encoder writes JSON values to a stream.
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder reads JSON values from a stream.
type Decoder interface {
	Decode(v interface{}) error
}

var (
	Marshal    func(v interface{}) ([]byte, error)
	Unmarshal  func(data []byte, v interface{}) error
	NewEncoder func(w io.Writer) Encoder
	NewDecoder func(r io.Reader) Decoder

	usingSonic bool
)

func init() {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		useSonic(sonic.ConfigDefault)
		return
	}

	Marshal = stdjson.Marshal
	Unmarshal = stdjson.Unmarshal
	NewEncoder = func(w io.Writer) Encoder { return stdjson.NewEncoder(w) }
	NewDecoder = func(r io.Reader) Decoder { return stdjson.NewDecoder(r) }
}

func useSonic(api sonic.API) {
	Marshal = api.Marshal
	Unmarshal = api.Unmarshal
	NewEncoder = func(w io.Writer) Encoder { return api.NewEncoder(w) }
	NewDecoder = func(r io.Reader) Decoder { return api.NewDecoder(r) }
	usingSonic = true
}

// ConfigStandardMode selects sonic's default configuration.
// No-op when sonic is unavailable.
func ConfigStandardMode() {
	if usingSonic {
		useSonic(sonic.ConfigDefault)
	}
}

// ConfigCompatibleMode selects sonic's encoding/json compatible
// configuration (sorted map keys, HTML escaping).
func ConfigCompatibleMode() {
	if usingSonic {
		useSonic(sonic.ConfigStd)
	}
}

// IsUsingSonic reports whether sonic backs the codec.
func IsUsingSonic() bool {
	return usingSonic
}
