package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kart-io/mongokit/pkg/service"
	"github.com/kart-io/mongokit/pkg/service/memdb"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func spanAttr(s sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestService_Spans(t *testing.T) {
	sr := recordSpans(t)
	ctx := context.Background()

	db := memdb.New(memdb.WithReplicaSet(true))
	s := newService(t, db, nodeConfig{
		DeleteRules: []nodeRule{
			deleteRule("dr_noop", service.DeletePre, func(context.Context, *nodeService, nodeArgs) error { return nil }),
		},
	})

	id := insertNode(t, s, "root", nil)
	_, err := s.DeleteByID(ctx, id)
	require.NoError(t, err)

	db.Coll(nodes).FailNext(memdb.OpCount, assert.AnError)
	_, err = s.CountDocuments(ctx, bson.M{})
	require.Error(t, err)

	var names []string
	for _, span := range sr.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "mongokit.insert_one")
	assert.Contains(t, names, "mongokit.delete_one")
	assert.Contains(t, names, "mongokit.find_ids")
	assert.Contains(t, names, "mongokit.count")

	for _, span := range sr.Ended() {
		coll, ok := spanAttr(span, "db.collection.name")
		require.True(t, ok, span.Name())
		assert.Equal(t, nodes, coll.AsString())

		switch span.Name() {
		case "mongokit.delete_one":
			ids, ok := spanAttr(span, "mongokit.delete.ids")
			require.True(t, ok)
			assert.EqualValues(t, 1, ids.AsInt64())
			tx, _ := spanAttr(span, "mongokit.delete.transaction")
			assert.True(t, tx.AsBool())
			assert.Equal(t, codes.Unset, span.Status().Code)
		case "mongokit.count":
			assert.Equal(t, codes.Error, span.Status().Code)
		}
	}
}
