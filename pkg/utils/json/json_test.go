package json

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type node struct {
	ID     primitive.ObjectID  `json:"_id"`
	Name   string              `json:"name"`
	Parent *primitive.ObjectID `json:"parent"`
}

func TestBackendSelection(t *testing.T) {
	want := runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
	assert.Equal(t, want, IsUsingSonic())
}

func TestObjectIDRoundTrip(t *testing.T) {
	id := primitive.NewObjectID()
	in := node{ID: id, Name: "root"}

	data, err := Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"_id":"`+id.Hex()+`"`)
	assert.Contains(t, string(data), `"parent":null`)

	var out node
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestEncoderDecoder(t *testing.T) {
	for _, mode := range []func(){ConfigCompatibleMode, ConfigStandardMode} {
		mode()

		var buf bytes.Buffer
		require.NoError(t, NewEncoder(&buf).Encode(map[string]int{"delete_count": 2}))

		var out map[string]int
		require.NoError(t, NewDecoder(&buf).Decode(&out))
		assert.Equal(t, 2, out["delete_count"])
	}
}
