package query

import "go.mongodb.org/mongo-driver/bson"

// Filter is anything accepted where a filter document is expected:
// nil, a Clause, bson.M, bson.D or map[string]interface{}.
type Filter = interface{}

// Compile turns f into a value the driver can encode. nil becomes an empty
// document and clauses are compiled, other values pass through unchanged.
func Compile(f Filter) interface{} {
	switch v := f.(type) {
	case nil:
		return bson.M{}
	case Clause:
		return v.ToMongo()
	}
	return f
}
