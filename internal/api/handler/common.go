package handler

import (
	"Mallchat/internal/api/middleware"
	"Mallchat/internal/pkg/response"
	"Mallchat/internal/pkg/util"

	"github.com/gin-gonic/gin"
)

func currentUID(c *gin.Context) uint64 {
	return c.GetUint64(middleware.UserIDKey)
}

// validate 校验 validate 标签，失败时直接写回 400
func validate(c *gin.Context, req any) bool {
	if err := util.ValidateDTO(req); err != nil {
		response.Fail(c, response.BadRequest, err.Error())
		return false
	}
	return true
}
