package response

import (
	"Mallchat/internal/service"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, fn func(c *gin.Context)) map[string]any {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorMapping(t *testing.T) {
	body := run(t, func(c *gin.Context) {
		Error(c, fmt.Errorf("send: %w", service.ErrNotRoomMember))
	})
	assert.EqualValues(t, Forbidden, body["code"])
	assert.Equal(t, service.ErrNotRoomMember.Error(), body["message"])

	body = run(t, func(c *gin.Context) {
		Error(c, fmt.Errorf("%w: %v", service.ErrMsgContentInvalid, errors.New("Key: 'TextMsgBody.Content' Error:Field validation")))
	})
	assert.EqualValues(t, BadRequest, body["code"])
	assert.Equal(t, service.ErrMsgContentInvalid.Error(), body["message"])

	body = run(t, func(c *gin.Context) { Error(c, service.ErrTooFrequent) })
	assert.EqualValues(t, 429, body["code"])

	body = run(t, func(c *gin.Context) { Error(c, errors.New("db down")) })
	assert.EqualValues(t, InternalServerError, body["code"])
	assert.Equal(t, service.UnExpectedError.Error(), body["message"])
}

func TestSuccess(t *testing.T) {
	body := run(t, func(c *gin.Context) { Success(c, map[string]int{"a": 1}) })
	assert.EqualValues(t, Ok, body["code"])
	assert.Equal(t, "success", body["message"])
}

func TestBindErrors(t *testing.T) {
	var v struct {
		N int `json:"n"`
	}
	err := stdjson.Unmarshal([]byte(`{"n":"x"}`), &v)
	require.Error(t, err)
	body := run(t, func(c *gin.Context) { Error(c, err) })
	assert.EqualValues(t, BadRequest, body["code"])

	body = run(t, func(c *gin.Context) { Error(c, io.EOF) })
	assert.EqualValues(t, BadRequest, body["code"])
	assert.Equal(t, "请求体为空", body["message"])
}
