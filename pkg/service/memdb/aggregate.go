package memdb

import (
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
)

type stage struct {
	name  string
	value interface{}
}

// pipelineStages accepts the pipeline shapes the driver accepts: a slice of
// single key documents in any of the bson document types.
func pipelineStages(pipeline interface{}) ([]stage, error) {
	v := reflect.ValueOf(pipeline)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("memdb: pipeline must be a slice, got %T", pipeline)
	}

	stages := make([]stage, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		el := v.Index(i).Interface()
		var st stage
		switch d := el.(type) {
		case bson.D:
			if len(d) != 1 {
				return nil, fmt.Errorf("memdb: pipeline stage %d must have exactly one field", i)
			}
			st = stage{name: d[0].Key, value: d[0].Value}
		default:
			m, ok := asDoc(el)
			if !ok || len(m) != 1 {
				return nil, fmt.Errorf("memdb: pipeline stage %d must be a single field document", i)
			}
			for k, val := range m {
				st = stage{name: k, value: val}
			}
		}
		stages = append(stages, st)
	}
	return stages, nil
}

func runStage(docs []bson.M, st stage) ([]bson.M, error) {
	switch st.name {
	case "$match":
		f, err := compileFilter(st.value)
		if err != nil {
			return nil, err
		}
		var out []bson.M
		for _, doc := range docs {
			ok, err := match(doc, f)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, doc)
			}
		}
		return out, nil
	case "$sort":
		keys, err := sortKeys(st.value)
		if err != nil {
			return nil, err
		}
		sortDocs(docs, keys)
		return docs, nil
	case "$skip", "$limit":
		n, ok := toFloat(st.value)
		if !ok || n < 0 {
			return nil, fmt.Errorf("memdb: %s needs a non-negative number", st.name)
		}
		count := int64(n)
		if st.name == "$skip" {
			return window(docs, &count, nil), nil
		}
		if count == 0 {
			return nil, fmt.Errorf("memdb: $limit must be positive")
		}
		return window(docs, nil, &count), nil
	case "$project":
		out := make([]bson.M, 0, len(docs))
		for _, doc := range docs {
			p, err := project(doc, st.value)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	case "$count":
		field, ok := st.value.(string)
		if !ok || field == "" {
			return nil, fmt.Errorf("memdb: $count needs a field name")
		}
		if len(docs) == 0 {
			return nil, nil
		}
		return []bson.M{{field: int32(len(docs))}}, nil
	}
	return nil, fmt.Errorf("memdb: unsupported pipeline stage %s", st.name)
}
