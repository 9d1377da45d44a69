package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:      0,
	HTTP:      http.StatusOK,
	GRPCCode:  codes.OK,
	MessageEN: "Success",
	MessageZH: "成功",
})

// Request errors.
var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 0),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Bad request",
		MessageZH: "请求错误",
	})

	// ErrInvalidParam indicates an invalid parameter.
	ErrInvalidParam = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid parameter",
		MessageZH: "参数无效",
	})

	// ErrValidationFailed indicates that a payload failed struct validation.
	ErrValidationFailed = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 4),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Validation failed",
		MessageZH: "验证失败",
	})
)

// Resource errors.
var (
	// ErrNotFound indicates that the requested resource does not exist.
	ErrNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryResource, 0),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Resource not found",
		MessageZH: "资源不存在",
	})

	// ErrRouteNotFound is returned for unknown HTTP routes.
	ErrRouteNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryResource, 4),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Route not found",
		MessageZH: "路由不存在",
	})
)

// Conflict errors.
var (
	// ErrConflict indicates a state conflict.
	ErrConflict = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConflict, 0),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.Aborted,
		MessageEN: "Resource conflict",
		MessageZH: "资源冲突",
	})

	// ErrDuplicateKey maps MongoDB duplicate key write errors.
	ErrDuplicateKey = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConflict, 2),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Duplicate key",
		MessageZH: "键重复",
	})
)

// Internal errors.
var (
	// ErrInternal is the fallback for errors without a code.
	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal server error",
		MessageZH: "服务器内部错误",
	})

	// ErrPanic is reported by the recovery middleware.
	ErrPanic = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal panic",
		MessageZH: "内部异常",
	})
)

// Database errors.
var (
	// ErrDatabase wraps driver errors.
	ErrDatabase = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Database error",
		MessageZH: "数据库错误",
	})

	// ErrDBConnection indicates a failure to reach the database.
	ErrDBConnection = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 1),
		HTTP:      http.StatusServiceUnavailable,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Database connection failed",
		MessageZH: "数据库连接失败",
	})

	// ErrDBTransaction indicates a failed commit or abort.
	ErrDBTransaction = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 3),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Aborted,
		MessageEN: "Database transaction failed",
		MessageZH: "数据库事务失败",
	})
)

// Configuration errors.
var (
	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConfig, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Invalid configuration",
		MessageZH: "配置无效",
	})
)
