package handler

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/pkg/response"
	"Mallchat/internal/service"

	"github.com/gin-gonic/gin"
)

type OssHandler struct {
	ossSvc service.OssService
}

func NewOssHandler(ossSvc service.OssService) *OssHandler {
	return &OssHandler{ossSvc: ossSvc}
}

// GetUploadURL 客户端直传对象存储，服务端只负责签名
func (s *OssHandler) GetUploadURL(c *gin.Context) {
	var req dto.UploadURLReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	res, err := s.ossSvc.GetUploadURL(c.Request.Context(), currentUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
