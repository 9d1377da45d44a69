package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, "", Join())
	assert.Equal(t, "server.", Join("server"))
	assert.Equal(t, "tree.mongodb.", Join("tree", "mongodb"))
	assert.Equal(t, "mongodb.host", Join("mongodb")+"host")
}
