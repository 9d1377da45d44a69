package logger

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Flags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--log.level=DEBUG", "--log.format=console", "--log.engine=slog"}))
	assert.Equal(t, "DEBUG", o.Level)
	assert.Equal(t, "console", o.Format)
	assert.Equal(t, "slog", o.Engine)

	require.NoError(t, o.Complete())
	assert.NoError(t, o.Validate())
}

func TestOptions_Init(t *testing.T) {
	o := NewOptions()
	o.OutputPaths = []string{"stdout"}

	log, err := o.Init()
	require.NoError(t, err)
	assert.NotNil(t, log)
}
