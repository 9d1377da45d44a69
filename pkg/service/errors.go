package service

import (
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/kart-io/mongokit/pkg/errors"
	"github.com/kart-io/mongokit/pkg/model"
)

func init() {
	errors.RegisterService(errors.ServiceMongoKit, "mongokit")
}

var (
	// ErrValidation is matched by every error a Validator returns.
	ErrValidation = errors.Register(&errors.Errno{
		Code:      errors.MakeCode(errors.ServiceMongoKit, errors.CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Validation failed",
		MessageZH: "数据校验失败",
	})

	// ErrDelete is matched by every error a DeleteRule returns.
	ErrDelete = errors.Register(&errors.Errno{
		Code:      errors.MakeCode(errors.ServiceMongoKit, errors.CategoryRequest, 2),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.FailedPrecondition,
		MessageEN: "Delete rejected",
		MessageZH: "删除被拒绝",
	})

	// ErrInvalidObjectID is returned for malformed ObjectID input.
	ErrInvalidObjectID = model.ErrInvalidObjectID

	// ErrAmbiguousDelete is returned by DeleteOne when delete rules are
	// registered and the filter matches more than one document.
	ErrAmbiguousDelete = errors.NewConflictError(errors.ServiceMongoKit, 1).
				GRPC(codes.FailedPrecondition).
				Message("Ambiguous DeleteOne: multiple documents match the query", "DeleteOne 不明确：多个文档匹配查询条件").
				MustBuild()

	// ErrService signals a severe inconsistency, e.g. a document that cannot
	// be read back right after it was written.
	ErrService = errors.NewInternalError(errors.ServiceMongoKit, 1).
			Message("Service error", "服务错误").
			MustBuild()

	// ErrInvalidService is returned by New for an unusable configuration.
	ErrInvalidService = errors.NewConfigError(errors.ServiceMongoKit, 1).
				Message("Invalid service configuration", "服务配置无效").
				MustBuild()
)

// Kind selects the error a Rule translates failures into.
type Kind int

const (
	// KindNone returns rule errors unchanged.
	KindNone Kind = iota
	// KindValidation wraps rule errors as validation errors.
	KindValidation
	// KindDelete wraps rule errors as delete errors.
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDelete:
		return "delete"
	}
	return "none"
}

// Errno returns the registered errno of the kind, nil for KindNone.
func (k Kind) Errno() *errors.Errno {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindDelete:
		return ErrDelete
	}
	return nil
}

// RuleError is returned when a Validator or DeleteRule fails.
//
// errors.Is(err, ErrValidation) and errors.Is(err, ErrDelete) select by
// kind. The original failure stays reachable through Unwrap.
type RuleError struct {
	Kind   Kind
	Rule   string
	Config string
	cause  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s rule failed: %s: %v", e.Kind, e.Rule, e.cause)
}

func (e *RuleError) Unwrap() error { return e.cause }

// Is matches the errno of the error's kind.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*errors.Errno)
	if !ok {
		return false
	}
	base := e.Kind.Errno()
	return base != nil && base.Code == t.Code
}

// Errno returns the errno of the error's kind carrying the rule message.
func (e *RuleError) Errno() *errors.Errno {
	base := e.Kind.Errno()
	if base == nil {
		return nil
	}
	return base.WithMessage(e.Error()).WithCause(e.cause)
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool {
	return errors.IsCode(err, ErrValidation.Code)
}

// IsDeleteError reports whether err is a delete rule failure.
func IsDeleteError(err error) bool {
	return errors.IsCode(err, ErrDelete.Code)
}
