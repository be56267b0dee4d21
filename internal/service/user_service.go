package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/sensitive"
	"Mallchat/internal/pkg/util"
	"Mallchat/internal/repository"
	"context"
	"strconv"
)

const defaultMemberPageSize = 20

type UserService interface {
	GetUserInfo(ctx context.Context, uid uint64) (*dto.UserInfoResp, error)
	ModifyName(ctx context.Context, uid uint64, name string) error
	ListBadges(ctx context.Context, uid uint64) ([]*dto.BadgeResp, error)
	WearBadge(ctx context.Context, uid, badgeID uint64) error
	GetSummaryInfo(ctx context.Context, uids []uint64) ([]*dto.SummaryInfo, error)
	GetOnlinePage(ctx context.Context, req *dto.CursorPageReq) (*dto.CursorPageResp[*dto.ChatMemberResp], error)
}

type UserServiceImpl struct {
	userRepo repository.UserRepo
	itemRepo repository.ItemRepo
	filter   *sensitive.Filter
	lockOpts LockOptions
}

func NewUserService(userRepo repository.UserRepo, itemRepo repository.ItemRepo, filter *sensitive.Filter, lockOpts LockOptions) UserService {
	return &UserServiceImpl{
		userRepo: userRepo,
		itemRepo: itemRepo,
		filter:   filter,
		lockOpts: lockOpts,
	}
}

func (s *UserServiceImpl) GetUserInfo(ctx context.Context, uid uint64) (*dto.UserInfoResp, error) {
	user, err := s.userRepo.GetUserById(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	chance, err := s.itemRepo.CountUnused(ctx, uid, consts.ItemModifyNameCard)
	if err != nil {
		return nil, err
	}
	return &dto.UserInfoResp{
		ID:               user.ID,
		Name:             user.Name,
		Avatar:           user.Avatar,
		Sex:              user.Sex,
		ModifyNameChance: chance,
	}, nil
}

// ModifyName 消耗改名卡改名，同名检查与扣卡在同一把锁内完成
func (s *UserServiceImpl) ModifyName(ctx context.Context, uid uint64, name string) error {
	if name == "" || s.filter.HasSensitiveWord(name) {
		return ErrParamInvalid
	}
	lock, err := acquireLock(ctx, consts.UserNameLock+strconv.FormatUint(uid, 10), s.lockOpts)
	if err != nil {
		return err
	}
	defer lock.Release()

	exist, err := s.userRepo.GetUserByName(ctx, name)
	if err != nil {
		return err
	}
	if exist != nil {
		return ErrUserNameExist
	}
	card, err := s.itemRepo.GetFirstUnused(ctx, uid, consts.ItemModifyNameCard)
	if err != nil {
		return err
	}
	if card == nil {
		return ErrNoModifyNameCard
	}
	ok, err := s.itemRepo.UseItemAndRename(ctx, card.ID, uid, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoModifyNameCard
	}
	return nil
}

// ListBadges 全部徽章，已拥有的排在前面
func (s *UserServiceImpl) ListBadges(ctx context.Context, uid uint64) ([]*dto.BadgeResp, error) {
	user, err := s.userRepo.GetUserById(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	badges, err := s.itemRepo.GetItemConfigsByType(ctx, consts.ItemTypeBadge)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(badges))
	for _, badge := range badges {
		ids = append(ids, badge.ID)
	}
	owned, err := s.itemRepo.GetOwnedItemIDs(ctx, uid, ids)
	if err != nil {
		return nil, err
	}
	ownedSet := make(map[uint64]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}

	obtained := make([]*dto.BadgeResp, 0, len(badges))
	others := make([]*dto.BadgeResp, 0, len(badges))
	for _, badge := range badges {
		resp := &dto.BadgeResp{ID: badge.ID, Img: badge.Img, Describe: badge.Describe}
		if user.ItemID != nil && *user.ItemID == badge.ID {
			resp.Wearing = 1
		}
		if _, ok := ownedSet[badge.ID]; ok {
			resp.Obtain = 1
			obtained = append(obtained, resp)
			continue
		}
		others = append(others, resp)
	}
	return append(obtained, others...), nil
}

func (s *UserServiceImpl) WearBadge(ctx context.Context, uid, badgeID uint64) error {
	item, err := s.itemRepo.GetItemConfig(ctx, badgeID)
	if err != nil {
		return err
	}
	if item == nil || item.Type != consts.ItemTypeBadge {
		return ErrParamInvalid
	}
	owned, err := s.itemRepo.HasItem(ctx, uid, badgeID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrBadgeNotOwned
	}
	return s.userRepo.UpdateWearingItem(ctx, uid, badgeID)
}

// GetSummaryInfo 批量获取用户展示信息，不存在的 uid 直接跳过
func (s *UserServiceImpl) GetSummaryInfo(ctx context.Context, uids []uint64) ([]*dto.SummaryInfo, error) {
	users, err := s.userRepo.GetUserByIds(ctx, util.UniqueUint64(uids))
	if err != nil {
		return nil, err
	}
	badges, err := s.itemRepo.GetItemConfigsByType(ctx, consts.ItemTypeBadge)
	if err != nil {
		return nil, err
	}
	badgeIDs := make([]uint64, 0, len(badges))
	for _, badge := range badges {
		badgeIDs = append(badgeIDs, badge.ID)
	}

	list := make([]*dto.SummaryInfo, 0, len(users))
	for _, user := range users {
		owned, err := s.itemRepo.GetOwnedItemIDs(ctx, user.ID, badgeIDs)
		if err != nil {
			return nil, err
		}
		list = append(list, &dto.SummaryInfo{
			UID:         user.ID,
			Name:        user.Name,
			Avatar:      user.Avatar,
			LocPlace:    locPlace(user),
			WearingItem: user.ItemID,
			ItemIDs:     owned,
		})
	}
	return list, nil
}

func locPlace(user *model.User) string {
	if detail := user.IPInfo.UpdateIPDetail; detail != nil {
		return detail.Region
	}
	return ""
}

// GetOnlinePage 在线用户列表，按 id 游标分页
func (s *UserServiceImpl) GetOnlinePage(ctx context.Context, req *dto.CursorPageReq) (*dto.CursorPageResp[*dto.ChatMemberResp], error) {
	cursorID, err := util.DecodeIDCursor(req.Cursor)
	if err != nil {
		return nil, ErrParamInvalid
	}
	size := util.NormalizePageSize(req.PageSize, defaultMemberPageSize)
	users, err := s.userRepo.PageOnlineUsers(ctx, cursorID, size)
	if err != nil {
		return nil, err
	}
	resp := &dto.CursorPageResp[*dto.ChatMemberResp]{
		IsLast: len(users) < size,
		List:   make([]*dto.ChatMemberResp, 0, len(users)),
	}
	for _, user := range users {
		resp.List = append(resp.List, &dto.ChatMemberResp{
			UID:          user.ID,
			ActiveStatus: user.Active,
			LastOptTime:  user.LastOptTime,
		})
	}
	if len(users) > 0 && !resp.IsLast {
		resp.Cursor = util.EncodeIDCursor(users[len(users)-1].ID)
	}
	return resp, nil
}
