package response

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mongokit/pkg/errors"
	"github.com/kart-io/mongokit/pkg/utils/json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(header ...string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for i := 0; i+1 < len(header); i += 2 {
		c.Request.Header.Set(header[i], header[i+1])
	}
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var r Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestSuccess(t *testing.T) {
	r := Success(map[string]int{"n": 1})
	assert.True(t, r.IsSuccess())
	assert.Equal(t, http.StatusOK, r.HTTPStatus())
	assert.Equal(t, "success", r.Message)

	r = SuccessWithMessage("created", nil)
	assert.Equal(t, "created", r.Message)
}

func TestErr(t *testing.T) {
	r := Err(errors.ErrNotFound)
	assert.Equal(t, errors.ErrNotFound.Code, r.Code)
	assert.Equal(t, http.StatusNotFound, r.HTTPStatus())
	assert.False(t, r.IsSuccess())

	assert.True(t, Err(nil).IsSuccess())
	assert.Equal(t, errors.ErrNotFound.MessageZH, ErrWithLang(errors.ErrNotFound, "zh-CN").Message)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want int
	}{
		{0, http.StatusOK},
		{errors.ErrConflict.Code, http.StatusConflict},
		{errors.MakeCode(99, errors.CategoryRequest, 999), http.StatusBadRequest},
		{errors.MakeCode(99, errors.CategoryResource, 999), http.StatusNotFound},
		{errors.MakeCode(99, errors.CategoryTimeout, 999), http.StatusGatewayTimeout},
		{errors.MakeCode(99, errors.CategoryDatabase, 999), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorWithCode(tt.code, "x").HTTPStatus())
		})
	}
}

func TestOK(t *testing.T) {
	c, w := newContext()
	c.Set(RequestIDKey, "req-1")

	OK(c, map[string]string{"name": "root"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentTypeJSON, w.Header().Get("Content-Type"))
	r := decode(t, w)
	assert.Equal(t, 0, r.Code)
	assert.Equal(t, "req-1", r.RequestID)
	assert.NotZero(t, r.Timestamp)
	assert.Equal(t, map[string]interface{}{"name": "root"}, r.Data)
}

func TestFail(t *testing.T) {
	t.Run("errno", func(t *testing.T) {
		c, w := newContext("Accept-Language", "zh-CN,zh;q=0.9")
		Fail(c, fmt.Errorf("lookup: %w", errors.ErrNotFound.WithMessage("tree node missing")))

		assert.Equal(t, http.StatusNotFound, w.Code)
		r := decode(t, w)
		assert.Equal(t, errors.ErrNotFound.Code, r.Code)
		assert.Equal(t, errors.ErrNotFound.MessageZH, r.Message)
	})

	t.Run("plain error", func(t *testing.T) {
		c, w := newContext()
		Fail(c, fmt.Errorf("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		r := decode(t, w)
		assert.Equal(t, errors.ErrInternal.Code, r.Code)
		assert.NotContains(t, r.Message, "boom")
	})

	t.Run("explicit status", func(t *testing.T) {
		c, w := newContext()
		FailWithStatus(c, http.StatusConflict, errors.ErrInternal)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, errors.ErrInternal.Code, decode(t, w).Code)
	})
}

func TestLang(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"en":                "en",
		"zh-CN,zh;q=0.9":    "zh-CN",
		"zh;q=0.8, en;q=.5": "zh",
	}
	for header, want := range tests {
		c, _ := newContext("Accept-Language", header)
		assert.Equal(t, want, Lang(c), header)
	}
}
