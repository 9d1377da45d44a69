package memdb

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalize converts any encodable document into the bson.M shape the
// driver itself decodes: int32/int64/float64 numbers, primitive.DateTime,
// nested bson.M documents and bson.A arrays.
func normalize(doc interface{}) (bson.M, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := bson.M{}
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeValue applies normalize to a single value.
func normalizeValue(v interface{}) (interface{}, error) {
	wrapped, err := normalize(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return wrapped["v"], nil
}

// asDoc returns v as a bson.M when it is a document.
func asDoc(v interface{}) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]interface{}:
		return d, true
	case bson.D:
		m := make(bson.M, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

func asArray(v interface{}) (bson.A, bool) {
	switch a := v.(type) {
	case bson.A:
		return a, true
	case []interface{}:
		return a, true
	}
	return nil, false
}

// lookup resolves a dotted path.
func lookup(doc bson.M, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		d, ok := asDoc(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = d[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// compare orders two values of the same kind. ok is false when they are
// not comparable.
func compare(a, b interface{}) (c int, ok bool) {
	if fa, okA := toFloat(a); okA {
		if fb, okB := toFloat(b); okB {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case primitive.ObjectID:
		if y, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(x[:], y[:]), true
		}
	case primitive.DateTime:
		if y, ok := b.(primitive.DateTime); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			}
			return 1, true
		}
	}
	return 0, false
}

func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	if da, ok := asDoc(a); ok {
		db, ok := asDoc(b)
		if !ok || len(da) != len(db) {
			return false
		}
		for k, v := range da {
			if w, ok := db[k]; !ok || !equal(v, w) {
				return false
			}
		}
		return true
	}
	if aa, ok := asArray(a); ok {
		ab, ok := asArray(b)
		if !ok || len(aa) != len(ab) {
			return false
		}
		for i := range aa {
			if !equal(aa[i], ab[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// candidates returns the values a condition is tested against: the value
// itself and, for arrays, every element.
func candidates(v interface{}, exists bool) []interface{} {
	if !exists {
		return []interface{}{nil}
	}
	out := []interface{}{v}
	if arr, ok := asArray(v); ok {
		out = append(out, arr...)
	}
	return out
}

// match reports whether doc satisfies filter.
func match(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		ok, err := matchKey(doc, key, cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchKey(doc bson.M, key string, cond interface{}) (bool, error) {
	switch key {
	case "$and", "$or", "$nor", "$not":
		clauses, ok := asArray(cond)
		if !ok {
			return false, fmt.Errorf("memdb: %s needs an array", key)
		}
		matched := 0
		for _, c := range clauses {
			sub, ok := asDoc(c)
			if !ok {
				return false, fmt.Errorf("memdb: %s entries must be documents", key)
			}
			ok, err := match(doc, sub)
			if err != nil {
				return false, err
			}
			if ok {
				matched++
			}
		}
		switch key {
		case "$and":
			return matched == len(clauses), nil
		case "$or":
			return matched > 0, nil
		case "$not":
			return matched != len(clauses), nil
		}
		return matched == 0, nil
	}

	value, exists := lookup(doc, key)
	if ops, ok := asDoc(cond); ok && isOperatorDoc(ops) {
		return matchOperators(value, exists, ops)
	}
	return matchEq(value, exists, cond), nil
}

func isOperatorDoc(d bson.M) bool {
	if len(d) == 0 {
		return false
	}
	for k := range d {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func matchEq(value interface{}, exists bool, want interface{}) bool {
	for _, c := range candidates(value, exists) {
		if equal(c, want) {
			return true
		}
	}
	return false
}

func matchOperators(value interface{}, exists bool, ops bson.M) (bool, error) {
	for op, arg := range ops {
		ok, err := matchOperator(value, exists, op, arg, ops)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOperator(value interface{}, exists bool, op string, arg interface{}, ops bson.M) (bool, error) {
	switch op {
	case "$eq":
		return matchEq(value, exists, arg), nil
	case "$ne":
		return !matchEq(value, exists, arg), nil
	case "$gt", "$gte", "$lt", "$lte":
		for _, c := range candidates(value, exists) {
			if cmp, ok := compare(c, arg); ok && orderHolds(op, cmp) {
				return true, nil
			}
		}
		return false, nil
	case "$in", "$nin":
		list, ok := asArray(arg)
		if !ok {
			return false, fmt.Errorf("memdb: %s needs an array", op)
		}
		found := false
		for _, want := range list {
			if matchEq(value, exists, want) {
				found = true
				break
			}
		}
		return found == (op == "$in"), nil
	case "$exists":
		want, _ := arg.(bool)
		return exists == want, nil
	case "$type":
		alias, _ := arg.(string)
		return exists && typeAlias(value) == alias, nil
	case "$all":
		list, ok := asArray(arg)
		if !ok {
			return false, fmt.Errorf("memdb: $all needs an array")
		}
		for _, want := range list {
			if !matchEq(value, exists, want) {
				return false, nil
			}
		}
		return exists, nil
	case "$elemMatch":
		cond, ok := asDoc(arg)
		if !ok {
			return false, fmt.Errorf("memdb: $elemMatch needs a document")
		}
		arr, ok := asArray(value)
		if !ok {
			return false, nil
		}
		for _, el := range arr {
			var (
				matched bool
				err     error
			)
			if isOperatorDoc(cond) {
				matched, err = matchOperators(el, true, cond)
			} else if d, isDoc := asDoc(el); isDoc {
				matched, err = match(d, cond)
			}
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil
	case "$size":
		arr, ok := asArray(value)
		n, okN := toFloat(arg)
		return ok && okN && float64(len(arr)) == n, nil
	case "$regex":
		pattern, _ := arg.(string)
		if opts, ok := ops["$options"].(string); ok && opts != "" {
			pattern = "(?" + opts + ")" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		s, ok := value.(string)
		return ok && re.MatchString(s), nil
	case "$not":
		sub, ok := asDoc(arg)
		if !ok {
			return false, fmt.Errorf("memdb: $not needs a document")
		}
		matched, err := matchOperators(value, exists, sub)
		return !matched && err == nil, err
	case "$options":
		return true, nil
	}
	return false, fmt.Errorf("memdb: unsupported operator %s", op)
}

func orderHolds(op string, cmp int) bool {
	switch op {
	case "$gt":
		return cmp > 0
	case "$gte":
		return cmp >= 0
	case "$lt":
		return cmp < 0
	}
	return cmp <= 0
}

func typeAlias(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case int32:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case bool:
		return "bool"
	case primitive.ObjectID:
		return "objectId"
	case primitive.DateTime:
		return "date"
	case bson.A, []interface{}:
		return "array"
	case bson.M, bson.D, map[string]interface{}:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
