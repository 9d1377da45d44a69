package validator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kart-io/mongokit/pkg/errors"
)

type payload struct {
	Name   string             `json:"name" validate:"required,max=8"`
	Parent string             `json:"parent" validate:"omitempty,objectid"`
	Ref    primitive.ObjectID `json:"ref" validate:"objectid"`
}

func TestValidate(t *testing.T) {
	v := New()
	ref := primitive.NewObjectID()

	assert.NoError(t, v.Validate(payload{Name: "root", Ref: ref}))
	assert.NoError(t, v.Validate(payload{Name: "root", Parent: ref.Hex(), Ref: ref}))

	err := v.Validate(payload{Parent: "zzz"})
	require.Error(t, err)

	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)
	byField := verrs.ByField()
	assert.Contains(t, byField, "name")
	assert.Contains(t, byField, "parent")
	assert.Contains(t, byField, "ref")
	assert.Equal(t, []string{"ref must be a valid ObjectId"}, byField["ref"])
}

func TestValidateWithLang(t *testing.T) {
	v := New()

	errs := v.ValidateWithLang(payload{Name: "root"}, LangZH)
	require.True(t, errs.HasErrors())
	assert.Equal(t, "ref必须是有效的 ObjectId", errs.First())

	// Unknown languages fall back to English.
	errs = v.ValidateWithLang(payload{Name: "root"}, "fr")
	assert.Equal(t, "ref must be a valid ObjectId", errs.First())
}

func TestVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.Var(primitive.NewObjectID().Hex(), "objectid"))
	assert.Error(t, v.Var("nope", "objectid"))
}

func TestErrno(t *testing.T) {
	err := Struct(payload{Name: "way too long a name", Ref: primitive.NewObjectID()})
	require.Error(t, err)

	assert.Equal(t, errors.ErrValidationFailed.Code, errors.GetCode(err))
	assert.Contains(t, err.Error(), "validation failed: ")
	assert.Contains(t, fmt.Sprintf("%+v", err), "(tag=max)")
}
