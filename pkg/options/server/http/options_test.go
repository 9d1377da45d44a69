package http

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Flags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs, "server")

	require.NoError(t, fs.Parse([]string{"--server.addr=127.0.0.1:9000", "--server.read-timeout=2s"}))
	assert.Equal(t, "127.0.0.1:9000", o.Addr)
	assert.Equal(t, 2*time.Second, o.ReadTimeout)
	assert.Empty(t, o.Validate())
}

func TestOptions_Validate(t *testing.T) {
	o := &Options{Addr: "nope"}
	errs := o.Validate()
	assert.Len(t, errs, 4)

	var nilOpts *Options
	assert.Nil(t, nilOpts.Validate())
}
