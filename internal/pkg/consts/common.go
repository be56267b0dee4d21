package consts

// BroadcastGroup 所有在线连接默认加入的广播组
const BroadcastGroup = "chat_group"

// DefaultAvatarURL 默认头像
const DefaultAvatarURL = "default_avatar.png"

// 角色
const (
	RoleAdmin       = "ADMIN"
	RoleChatManager = "CHAT_MANAGER"
)

// 物品
const (
	ItemModifyNameCard = 1
	ItemLikeBadge      = 2
	ItemRegTop10Badge  = 3
	ItemRegTop100Badge = 4
)

// 物品类型
const (
	ItemTypeCard  = 1
	ItemTypeBadge = 2
)
