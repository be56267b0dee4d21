package handler

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/pkg/response"
	"Mallchat/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	sensitiveSvc service.SensitiveWordService
	roleSvc      service.RoleService
}

func NewAdminHandler(sensitiveSvc service.SensitiveWordService, roleSvc service.RoleService) *AdminHandler {
	return &AdminHandler{sensitiveSvc: sensitiveSvc, roleSvc: roleSvc}
}

// ReloadSensitiveWords 敏感词表改动后立即生效，不等定时任务
func (s *AdminHandler) ReloadSensitiveWords(c *gin.Context) {
	if err := s.sensitiveSvc.Reload(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *AdminHandler) GrantRole(c *gin.Context) {
	var req dto.RoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	if err := s.roleSvc.GrantRole(c.Request.Context(), req.UID, req.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *AdminHandler) RevokeRole(c *gin.Context) {
	var req dto.RoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	if err := s.roleSvc.RevokeRole(c.Request.Context(), req.UID, req.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
