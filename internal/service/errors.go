package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
)

var (
	ErrParamInvalid       = errors.New("参数错误")
	ErrTokenInvalid       = errors.New("登录已失效，请重新登录")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserNameExist      = errors.New("用户名已被占用")
	ErrNoModifyNameCard   = errors.New("改名卡次数不足")
	ErrBadgeNotOwned      = errors.New("没有该徽章")
	ErrRoomNotFound       = errors.New("房间不存在")
	ErrNotRoomMember      = errors.New("您不是该房间成员")
	ErrFriendRoomDisabled = errors.New("您和对方已不是好友")
	ErrMsgNotFound        = errors.New("消息不存在")
	ErrMsgTypeInvalid     = errors.New("消息类型不支持")
	ErrMsgContentInvalid  = errors.New("消息内容不合法")
	ErrReplyMsgInvalid    = errors.New("回复的消息不存在")
	ErrReplyCrossRoom     = errors.New("只能回复同一房间的消息")
	ErrAtUserInvalid      = errors.New("@的用户不存在")
	ErrMediaURLInvalid    = errors.New("文件地址不合法")
	ErrMsgAlreadyRecalled = errors.New("消息已经撤回")
	ErrRecallNoPower      = errors.New("抱歉，您没有权限")
	ErrRecallExpired      = errors.New("超过2分钟的消息不能撤回哦")
	ErrMarkTypeInvalid    = errors.New("标记类型不支持")
	ErrApplySelf          = errors.New("不能添加自己为好友")
	ErrAlreadyFriend      = errors.New("你们已经是好友了")
	ErrApplyNotFound      = errors.New("申请不存在")
	ErrApplyHandled       = errors.New("申请已处理")
	ErrNotFriend          = errors.New("对方不是您的好友")
	ErrGroupNotFound      = errors.New("群聊不存在")
	ErrGroupNoPower       = errors.New("您没有该群的管理权限")
	ErrGroupLeaderExit    = errors.New("群主不能退出群聊")
	ErrGroupExist         = errors.New("每个人只能创建一个群聊")
	ErrGroupRemoveSelf    = errors.New("不能移除自己")
	ErrTooFrequent        = errors.New("请求太频繁了，请稍后再试")
	UnauthorizedError     = errors.New("请先登录")
	ErrOSSDisabled        = errors.New("文件服务未开启")
	ErrRoleNotFound       = errors.New("角色不存在")
	UnExpectedError       = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:       BadRequest,
	ErrTokenInvalid:       Unauthorized,
	ErrUserNotFound:       NotFound,
	ErrUserNameExist:      BadRequest,
	ErrNoModifyNameCard:   BadRequest,
	ErrBadgeNotOwned:      BadRequest,
	ErrRoomNotFound:       NotFound,
	ErrNotRoomMember:      Forbidden,
	ErrFriendRoomDisabled: Forbidden,
	ErrMsgNotFound:        NotFound,
	ErrMsgTypeInvalid:     BadRequest,
	ErrMsgContentInvalid:  BadRequest,
	ErrReplyMsgInvalid:    BadRequest,
	ErrReplyCrossRoom:     BadRequest,
	ErrAtUserInvalid:      BadRequest,
	ErrMediaURLInvalid:    BadRequest,
	ErrMsgAlreadyRecalled: BadRequest,
	ErrRecallNoPower:      Forbidden,
	ErrRecallExpired:      BadRequest,
	ErrMarkTypeInvalid:    BadRequest,
	ErrApplySelf:          BadRequest,
	ErrAlreadyFriend:      BadRequest,
	ErrApplyNotFound:      NotFound,
	ErrApplyHandled:       BadRequest,
	ErrNotFriend:          BadRequest,
	ErrGroupNotFound:      NotFound,
	ErrGroupNoPower:       Forbidden,
	ErrGroupLeaderExit:    BadRequest,
	ErrGroupExist:         BadRequest,
	ErrGroupRemoveSelf:    BadRequest,
	ErrTooFrequent:        TooManyRequests,
	UnauthorizedError:     Unauthorized,
	ErrOSSDisabled:        BadRequest,
	ErrRoleNotFound:       NotFound,
	UnExpectedError:       InternalServerError,
}

// CodeOf 返回错误对应的业务码和命中的哨兵错误，未登记的错误视为系统异常
func CodeOf(err error) (int, error, bool) {
	for target, code := range ErrorMap {
		if errors.Is(err, target) {
			return code, target, true
		}
	}
	return InternalServerError, UnExpectedError, false
}
