package handler

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/pkg/response"
	"Mallchat/internal/service"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomSvc service.RoomService
}

func NewRoomHandler(roomSvc service.RoomService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc}
}

func (s *RoomHandler) CreateGroup(c *gin.Context) {
	var req dto.GroupCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	res, err := s.roomSvc.CreateGroup(c.Request.Context(), currentUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *RoomHandler) Invite(c *gin.Context) {
	var req dto.GroupInviteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	if err := s.roomSvc.Invite(c.Request.Context(), currentUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *RoomHandler) RemoveMember(c *gin.Context) {
	var req dto.GroupRemoveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.roomSvc.RemoveMember(c.Request.Context(), currentUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *RoomHandler) Exit(c *gin.Context) {
	var req dto.GroupExitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.roomSvc.Exit(c.Request.Context(), currentUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *RoomHandler) GetMembers(c *gin.Context) {
	var req dto.MemberPageReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.roomSvc.GetMembers(c.Request.Context(), currentUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetContactPage 会话列表
func (s *RoomHandler) GetContactPage(c *gin.Context) {
	var req dto.CursorPageReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	res, err := s.roomSvc.GetContactPage(c.Request.Context(), currentUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
