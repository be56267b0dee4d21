package consts

const (
	WsUserHandleKey   = "ws:user:handle:"
	WsLoginCodeKey    = "ws:login:code:"
	WsLoginOpenIDKey  = "ws:login:openid:"
	WsPushHandleTopic = "ws:push:handle:"
	WsPushGroupTopic  = "ws:push:group:"
	WxAccessTokenKey  = "wx:access_token"
)

const (
	MsgMarkLock  = "lock:mark:"
	ItemLock     = "lock:item:"
	FriendLock   = "lock:friend:"
	GroupLock    = "lock:group:"
	UserNameLock = "lock:user:name:"
)
