package handler

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/pkg/response"
	"Mallchat/internal/service"

	"github.com/gin-gonic/gin"
)

type FriendHandler struct {
	friendSvc service.FriendService
}

func NewFriendHandler(friendSvc service.FriendService) *FriendHandler {
	return &FriendHandler{friendSvc: friendSvc}
}

func (s *FriendHandler) Apply(c *gin.Context) {
	var req dto.FriendApplyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	if err := s.friendSvc.Apply(c.Request.Context(), currentUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *FriendHandler) Approve(c *gin.Context) {
	var req dto.FriendApproveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.friendSvc.Approve(c.Request.Context(), currentUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *FriendHandler) Delete(c *gin.Context) {
	var req dto.FriendDeleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.friendSvc.Delete(c.Request.Context(), currentUID(c), req.TargetUID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *FriendHandler) GetUnread(c *gin.Context) {
	res, err := s.friendSvc.GetUnread(c.Request.Context(), currentUID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *FriendHandler) GetApplyPage(c *gin.Context) {
	var req dto.CursorPageReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	res, err := s.friendSvc.GetApplyPage(c.Request.Context(), currentUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *FriendHandler) GetFriendPage(c *gin.Context) {
	var req dto.CursorPageReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	res, err := s.friendSvc.GetFriendPage(c.Request.Context(), currentUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
