// Package response provides the unified API response envelope.
//
// Every endpoint answers with {"code", "message", "data"}; code 0 means
// success and any other value is an errno code from pkg/errors.
package response

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/mongokit/pkg/errors"
	"github.com/kart-io/mongokit/pkg/utils/json"
)

// ContentTypeJSON is the content type of every envelope.
const ContentTypeJSON = "application/json; charset=utf-8"

// RequestIDKey is the gin context key the request ID middleware uses.
const RequestIDKey = "request_id"

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// HTTPCode is the HTTP status code (optional, for client convenience)
	HTTPCode int `json:"http_code,omitempty"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload (nil for errors)
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response timestamp (Unix milliseconds)
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{
		Code:     0,
		HTTPCode: http.StatusOK,
		Message:  "success",
		Data:     data,
	}
}

// SuccessWithMessage creates a successful response with custom message.
func SuccessWithMessage(message string, data interface{}) *Response {
	r := Success(data)
	r.Message = message
	return r
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno) *Response {
	return ErrWithLang(e, "")
}

// ErrWithLang creates an error response with a language-specific message.
func ErrWithLang(e *errors.Errno, lang string) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:     e.Code,
		HTTPCode: e.HTTPStatus(),
		Message:  e.Message(lang),
	}
}

// ErrorWithCode creates an error response with code and message.
func ErrorWithCode(code int, message string) *Response {
	r := &Response{
		Code:    code,
		Message: message,
	}
	r.HTTPCode = r.HTTPStatus()
	return r
}

// WithRequestID adds request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// WithTimestamp adds timestamp to the response.
func (r *Response) WithTimestamp(timestamp int64) *Response {
	r.Timestamp = timestamp
	return r
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}

// HTTPStatus returns the HTTP status code for this response.
// Unregistered codes map by category.
func (r *Response) HTTPStatus() int {
	if r.HTTPCode != 0 {
		return r.HTTPCode
	}
	if r.Code == 0 {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}

	switch errors.GetCategory(r.Code) {
	case errors.CategoryRequest:
		return http.StatusBadRequest
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryPermission:
		return http.StatusForbidden
	case errors.CategoryResource:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// -- gin rendering

// JSON writes r to c with r's HTTP status.
func JSON(c *gin.Context, r *Response) {
	if r.RequestID == "" {
		r.RequestID = c.GetString(RequestIDKey)
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}

	body, err := json.Marshal(r)
	if err != nil {
		logger.Errorw("Failed to encode response", "error", err, "path", c.Request.URL.Path)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(r.HTTPStatus(), ContentTypeJSON, body)
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, data interface{}) {
	JSON(c, Success(data))
}

// Fail writes the envelope of err. Errors without an errno become
// ErrInternal and are logged, their text is not sent to the client.
func Fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	if e == nil {
		OK(c, nil)
		return
	}
	if e.HTTPStatus() >= http.StatusInternalServerError {
		logger.Errorw("Request failed",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"code", e.Code,
			"error", err,
		)
	}
	JSON(c, ErrWithLang(e, Lang(c)))
}

// FailWithStatus writes the envelope of e with an explicit HTTP status.
func FailWithStatus(c *gin.Context, status int, e *errors.Errno) {
	r := ErrWithLang(e, Lang(c))
	r.HTTPCode = status
	JSON(c, r)
}

// Lang returns the primary language of the Accept-Language header.
func Lang(c *gin.Context) string {
	accept := c.GetHeader("Accept-Language")
	if accept == "" {
		return ""
	}
	lang, _, _ := strings.Cut(accept, ",")
	lang, _, _ = strings.Cut(lang, ";")
	return strings.TrimSpace(lang)
}
