package response

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/service"
	stdjson "encoding/json"
	"errors"
	"io"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
)

// Success 成功返回封装
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败返回封装
func Fail(c *gin.Context, businessCode int, message string) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    businessCode,
		Message: message,
		Data:    nil,
	})
}

// Error 处理错误
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Fail(c, BadRequest, "参数错误")
		return
	}

	if isJSONErr(err) {
		Fail(c, BadRequest, "Json错误")
		return
	}
	if errors.Is(err, io.EOF) {
		Fail(c, BadRequest, "请求体为空")
		return
	}

	code, target, ok := service.CodeOf(err)
	if !ok {
		log.ErrorContext(c.Request.Context(), "Error", "err", err)
	} else if !errors.Is(target, err) {
		log.DebugContext(c.Request.Context(), "业务错误", "err", err)
	}
	// 只回传哨兵文案，包装前缀和底层细节留在日志里
	Fail(c, code, target.Error())
}

// isJSONErr gin 默认用标准库解码，编译时带 go_json 标签则换成 go-json
func isJSONErr(err error) bool {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var stdTypeErr *stdjson.UnmarshalTypeError
	var stdSyntaxErr *stdjson.SyntaxError
	return errors.As(err, &typeErr) || errors.As(err, &syntaxErr) ||
		errors.As(err, &stdTypeErr) || errors.As(err, &stdSyntaxErr)
}
