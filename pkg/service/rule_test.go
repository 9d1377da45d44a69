package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/kart-io/mongokit/pkg/errors"
	"github.com/kart-io/mongokit/pkg/service"
)

type owner struct{ name string }

func TestRuleInvokeTranslatesErrors(t *testing.T) {
	cause := errors.New("bad")
	fail := func(context.Context, *owner, string) error { return cause }

	tests := []struct {
		kind service.Kind
		want *apierrors.Errno
	}{
		{service.KindValidation, service.ErrValidation},
		{service.KindDelete, service.ErrDelete},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			r := service.NewRule[*owner, service.ValidatorConfig, string]("r_fail", service.ValidateInsert, tt.kind, fail)
			err := r.Invoke(context.Background(), &owner{}, "args")
			require.Error(t, err)

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, tt.want.Code, apierrors.GetCode(err))

			var ruleErr *service.RuleError
			require.True(t, errors.As(err, &ruleErr))
			assert.Equal(t, tt.kind, ruleErr.Kind)
			assert.Equal(t, "r_fail", ruleErr.Rule)
			assert.Equal(t, "insert", ruleErr.Config)
			assert.Equal(t, tt.kind.String()+" rule failed: r_fail: bad", err.Error())

			e := apierrors.FromError(err)
			assert.Equal(t, tt.want.Code, e.Code)
			assert.Equal(t, tt.want.HTTPStatus(), e.HTTPStatus())
			assert.Contains(t, e.MessageEN, "r_fail")
		})
	}

	none := service.NewRule[*owner, service.ValidatorConfig, string]("r_none", service.ValidateInsert, service.KindNone, fail)
	assert.Same(t, cause, none.Invoke(context.Background(), &owner{}, ""))
}

func TestRuleKindsDoNotCrossMatch(t *testing.T) {
	fail := func(context.Context, *owner, string) error { return errors.New("x") }
	err := service.NewRule[*owner, service.DeleteRuleConfig, string]("r", service.DeletePre, service.KindDelete, fail).Invoke(context.Background(), nil, "")

	assert.True(t, service.IsDeleteError(err))
	assert.False(t, service.IsValidationError(err))
	assert.NotErrorIs(t, err, service.ErrValidation)
}

func TestRuleBind(t *testing.T) {
	var seen *owner
	r := service.NewRule[*owner, service.DeleteRuleConfig, int]("r_bind", service.DeletePost, service.KindDelete,
		func(_ context.Context, o *owner, args int) error {
			seen = o
			if args < 0 {
				return errors.New("negative")
			}
			return nil
		})
	assert.Equal(t, "r_bind", r.Name())
	assert.Equal(t, service.DeletePost, r.Config())
	assert.Equal(t, service.KindDelete, r.Kind())

	o := &owner{name: "bound"}
	fn := r.Bind(o)
	require.NoError(t, fn(context.Background(), 1))
	assert.Same(t, o, seen)
	assert.True(t, service.IsDeleteError(fn(context.Background(), -1)))
}

func TestValidatorConfigIncludes(t *testing.T) {
	assert.True(t, service.ValidateInsert.Includes(service.ValidateInsert))
	assert.False(t, service.ValidateInsert.Includes(service.ValidateUpdate))
	assert.True(t, service.ValidateInsertUpdate.Includes(service.ValidateInsert))
	assert.True(t, service.ValidateInsertUpdate.Includes(service.ValidateUpdate))
	assert.False(t, service.ValidateUpdate.Includes(service.ValidateInsert))
}

func TestConstructorsSetKinds(t *testing.T) {
	noop := func(context.Context, *owner, service.ValidateArgs) error { return nil }
	v := service.NewValidator[*owner]("v", service.ValidateUpdate, noop)
	assert.Equal(t, service.KindValidation, v.Kind())

	d := service.NewDeleteRule[*owner, string]("d", service.DeleteDeny,
		func(context.Context, *owner, service.DeleteArgs[string]) error { return nil })
	assert.Equal(t, service.KindDelete, d.Kind())
	assert.Equal(t, service.DeleteDeny, d.Config())
}
