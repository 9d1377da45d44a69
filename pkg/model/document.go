// Package model holds the building blocks of typed MongoDB documents.
package model

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is embedded by read models of stored documents.
// The primary key is exposed as ID and stored as _id.
type Document struct {
	ID primitive.ObjectID `bson:"_id" json:"_id"`
}

// GetID returns the document's primary key.
func (d Document) GetID() primitive.ObjectID { return d.ID }

// DeleteResult is the response body of delete endpoints.
type DeleteResult struct {
	DeleteCount int64 `bson:"delete_count" json:"delete_count"`
}

// Decode converts a raw document into T through a BSON round trip.
func Decode[T any](doc interface{}) (*T, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var out T
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeAll converts every raw document into T.
func DecodeAll[T any](docs []bson.M) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := Decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
