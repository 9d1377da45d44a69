package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseObjectID converts v into an ObjectID. It accepts ObjectIDs, pointers
// to them, and 24 character hex strings or byte slices.
func ParseObjectID(v interface{}) (primitive.ObjectID, error) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id, nil
	case *primitive.ObjectID:
		if id != nil {
			return *id, nil
		}
	case string:
		return parseHex(id)
	case []byte:
		return parseHex(string(id))
	}
	return primitive.NilObjectID, ErrInvalidObjectID.WithMessagef("Invalid ObjectId: %v", v)
}

func parseHex(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidObjectID.WithCause(err)
	}
	return id, nil
}

// MustObjectID is like ParseObjectID but panics on invalid input.
func MustObjectID(v interface{}) primitive.ObjectID {
	id, err := ParseObjectID(v)
	if err != nil {
		panic(err)
	}
	return id
}

// ObjectIDPtr returns a pointer to id.
func ObjectIDPtr(id primitive.ObjectID) *primitive.ObjectID {
	return &id
}
