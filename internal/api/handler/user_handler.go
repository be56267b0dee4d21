package handler

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/pkg/response"
	"Mallchat/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userSvc service.UserService
}

func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

func (s *UserHandler) GetUserInfo(c *gin.Context) {
	res, err := s.userSvc.GetUserInfo(c.Request.Context(), currentUID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ModifyName 改名需要消耗改名卡
func (s *UserHandler) ModifyName(c *gin.Context) {
	var req dto.ModifyNameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	if err := s.userSvc.ModifyName(c.Request.Context(), currentUID(c), req.Name); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *UserHandler) ListBadges(c *gin.Context) {
	res, err := s.userSvc.ListBadges(c.Request.Context(), currentUID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *UserHandler) WearBadge(c *gin.Context) {
	var req dto.WearBadgeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.userSvc.WearBadge(c.Request.Context(), currentUID(c), req.BadgeID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *UserHandler) GetSummaryInfo(c *gin.Context) {
	var req dto.SummaryInfoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	res, err := s.userSvc.GetSummaryInfo(c.Request.Context(), req.UIDList)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
