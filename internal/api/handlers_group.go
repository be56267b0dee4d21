package api

import "Mallchat/internal/api/handler"

type HandlersGroup struct {
	ChatHandler   *handler.ChatHandler
	WxHandler     *handler.WxHandler
	WsHandler     *handler.WsHandler
	FriendHandler *handler.FriendHandler
	RoomHandler   *handler.RoomHandler
	UserHandler   *handler.UserHandler
	OssHandler    *handler.OssHandler
	AdminHandler  *handler.AdminHandler
}
