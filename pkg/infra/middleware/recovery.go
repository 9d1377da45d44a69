package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/mongokit/pkg/errors"
	"github.com/kart-io/mongokit/pkg/utils/response"
)

// PanicHandler is called with the recovered value and the stack trace.
type PanicHandler func(c *gin.Context, err interface{}, stack []byte)

// Recovery turns panics into an ErrPanic envelope.
// The stack trace is logged, never returned to the client.
func Recovery(onPanic ...PanicHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()

			logger.Errorw("panic recovered",
				"panic", r,
				"stack_trace", string(stack),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			for _, h := range onPanic {
				h(c, r, stack)
			}

			response.JSON(c, response.ErrWithLang(errors.ErrPanic.WithMessagef("panic: %v", r), response.Lang(c)))
			c.Abort()
		}()
		c.Next()
	}
}
