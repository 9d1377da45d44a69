package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/kart-io/mongokit/pkg/query"
)

func TestMakeStage(t *testing.T) {
	value := bson.M{"first": 1, "second": 2}

	for _, stage := range Stages {
		t.Run(string(stage), func(t *testing.T) {
			result := MakeStage(stage, value)
			assert.Len(t, result, 1)
			assert.Equal(t, value, result[string(stage)])

			result = MakeStage(stage, query.Raw(value))
			assert.Len(t, result, 1)
			assert.Equal(t, value, result[string(stage)])
		})
	}
}

func TestStageChaining(t *testing.T) {
	value := bson.M{"first": 1}

	original := New()
	a := original
	for _, stage := range Stages {
		a = a.Stage(stage, value)
	}

	assert.Same(t, original, a)
	assert.Equal(t, len(Stages), a.Len())
	for i, stage := range Stages {
		assert.Equal(t, value, a.Pipeline()[i][string(stage)])
	}
}

func TestNewWithStages(t *testing.T) {
	a := New(MakeStage(Count, "total"), MakeStage(Limit, 1))
	assert.Equal(t, []bson.M{{"$count": "total"}, {"$limit": 1}}, a.Pipeline())

	var nilAgg *Aggregation
	assert.Equal(t, 0, nilAgg.Len())
	assert.Empty(t, nilAgg.Pipeline())
}

func TestMatchCompilesQuery(t *testing.T) {
	a := New().
		Stage(Match, query.F("lucky_number").Lt(1024)).
		Stage(Count, "total")

	assert.Equal(t, []bson.M{
		{"$match": bson.M{"lucky_number": bson.M{"$lt": 1024}}},
		{"$count": "total"},
	}, a.Pipeline())
}
