package handler

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/pkg/response"
	"Mallchat/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatSvc service.ChatService
	userSvc service.UserService
}

func NewChatHandler(chatSvc service.ChatService, userSvc service.UserService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc, userSvc: userSvc}
}

// SendMsg 发送消息
func (s *ChatHandler) SendMsg(c *gin.Context) {
	var req dto.ChatMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.chatSvc.SendMsg(c.Request.Context(), currentUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ChatHandler) GetMsg(c *gin.Context) {
	msgID, err := strconv.ParseUint(c.Param("msg_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.chatSvc.GetMsg(c.Request.Context(), currentUID(c), msgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetMsgPage 游客可以查看全员群的消息
func (s *ChatHandler) GetMsgPage(c *gin.Context) {
	var req dto.MsgPageReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req.CursorPageReq) {
		return
	}
	res, err := s.chatSvc.GetMsgPage(c.Request.Context(), currentUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ChatHandler) RecallMsg(c *gin.Context) {
	var req dto.RecallMsgReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.chatSvc.RecallMsg(c.Request.Context(), currentUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ChatHandler) SetMsgMark(c *gin.Context) {
	var req dto.MsgMarkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.chatSvc.SetMsgMark(c.Request.Context(), currentUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetOnlinePage 在线成员列表
func (s *ChatHandler) GetOnlinePage(c *gin.Context) {
	var req dto.CursorPageReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, err)
		return
	}
	if !validate(c, &req) {
		return
	}
	res, err := s.userSvc.GetOnlinePage(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
