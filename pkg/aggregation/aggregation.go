// Package aggregation builds MongoDB aggregation pipelines.
package aggregation

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/kart-io/mongokit/pkg/query"
)

// Stage is the name of an aggregation pipeline stage.
type Stage string

// Pipeline stages.
const (
	AddFields                   Stage = "$addFields"
	Bucket                      Stage = "$bucket"
	BucketAuto                  Stage = "$bucketAuto"
	ChangeStream                Stage = "$changeStream"
	ChangeStreamSplitLargeEvent Stage = "$changeStreamSplitLargeEvent"
	CollStats                   Stage = "$collStats"
	Count                       Stage = "$count"
	CurrentOp                   Stage = "$currentOp"
	Densify                     Stage = "$densify"
	Documents                   Stage = "$documents"
	Facet                       Stage = "$facet"
	Fill                        Stage = "$fill"
	GeoNear                     Stage = "$geoNear"
	GraphLookup                 Stage = "$graphLookup"
	Group                       Stage = "$group"
	IndexStats                  Stage = "$indexStats"
	Limit                       Stage = "$limit"
	ListLocalSessions           Stage = "$listLocalSessions"
	ListSampledQueries          Stage = "$listSampledQueries"
	ListSearchIndexes           Stage = "$listSearchIndexes"
	ListSessions                Stage = "$listSessions"
	Lookup                      Stage = "$lookup"
	Match                       Stage = "$match"
	Merge                       Stage = "$merge"
	Out                         Stage = "$out"
	PlanCacheStats              Stage = "$planCacheStats"
	Project                     Stage = "$project"
	QuerySettings               Stage = "$querySettings"
	Redact                      Stage = "$redact"
	ReplaceRoot                 Stage = "$replaceRoot"
	ReplaceWith                 Stage = "$replaceWith"
	Sample                      Stage = "$sample"
	Search                      Stage = "$search"
	SearchMeta                  Stage = "$searchMeta"
	Set                         Stage = "$set"
	SetWindowFields             Stage = "$setWindowFields"
	ShardedDataDistribution     Stage = "$shardedDataDistribution"
	Skip                        Stage = "$skip"
	Sort                        Stage = "$sort"
	SortByCount                 Stage = "$sortByCount"
	UnionWith                   Stage = "$unionWith"
	Unset                       Stage = "$unset"
	Unwind                      Stage = "$unwind"
	VectorSearch                Stage = "$vectorSearch"
)

// Stages lists every known stage in declaration order.
var Stages = []Stage{
	AddFields, Bucket, BucketAuto, ChangeStream, ChangeStreamSplitLargeEvent,
	CollStats, Count, CurrentOp, Densify, Documents, Facet, Fill, GeoNear,
	GraphLookup, Group, IndexStats, Limit, ListLocalSessions, ListSampledQueries,
	ListSearchIndexes, ListSessions, Lookup, Match, Merge, Out, PlanCacheStats,
	Project, QuerySettings, Redact, ReplaceRoot, ReplaceWith, Sample, Search,
	SearchMeta, Set, SetWindowFields, ShardedDataDistribution, Skip, Sort,
	SortByCount, UnionWith, Unset, Unwind, VectorSearch,
}

// MakeStage returns the single-key document {stage: value}. Clause values are
// compiled with ToMongo.
func MakeStage(stage Stage, value interface{}) bson.M {
	if c, ok := value.(query.Clause); ok {
		return bson.M{string(stage): c.ToMongo()}
	}
	return bson.M{string(stage): value}
}

// Aggregation is an ordered pipeline, directly usable as the pipeline
// argument of Collection.Aggregate.
type Aggregation []bson.M

// New returns a pipeline starting with the given stage documents.
func New(stages ...bson.M) *Aggregation {
	a := Aggregation(append([]bson.M{}, stages...))
	return &a
}

// Stage appends {stage: value} and returns a for chaining.
func (a *Aggregation) Stage(stage Stage, value interface{}) *Aggregation {
	*a = append(*a, MakeStage(stage, value))
	return a
}

// Pipeline returns the stages as a mongo.Pipeline-compatible slice.
func (a *Aggregation) Pipeline() []bson.M {
	if a == nil {
		return []bson.M{}
	}
	return []bson.M(*a)
}

// Len returns the number of stages.
func (a *Aggregation) Len() int {
	if a == nil {
		return 0
	}
	return len(*a)
}
