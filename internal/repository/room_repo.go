package repository

import (
	"Mallchat/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepo interface {
	GetRoom(ctx context.Context, id uint64) (*model.Room, error)
	GetRoomsByIds(ctx context.Context, ids []uint64) ([]*model.Room, error)
	GetHotRooms(ctx context.Context) ([]*model.Room, error)
	RefreshActive(ctx context.Context, roomID, msgID uint64, activeTime time.Time) error

	GetRoomFriend(ctx context.Context, roomID uint64) (*model.RoomFriend, error)
	GetRoomFriendByKey(ctx context.Context, roomKey string) (*model.RoomFriend, error)
	GetRoomFriendsByRoomIds(ctx context.Context, roomIDs []uint64) ([]*model.RoomFriend, error)
	CreateFriendRoom(ctx context.Context, uidA, uidB uint64) (*model.RoomFriend, error)
	UpdateFriendRoomStatus(ctx context.Context, roomKey string, status int8) error

	GetRoomGroup(ctx context.Context, roomID uint64) (*model.RoomGroup, error)
	GetRoomGroupsByRoomIds(ctx context.Context, roomIDs []uint64) ([]*model.RoomGroup, error)
	CreateGroupRoom(ctx context.Context, group *model.RoomGroup, leader uint64, members []uint64) (*model.Room, error)
	GetMember(ctx context.Context, groupID, uid uint64) (*model.GroupMember, error)
	GetMembers(ctx context.Context, groupID uint64) ([]*model.GroupMember, error)
	GetMemberUIDs(ctx context.Context, groupID uint64) ([]uint64, error)
	GetLeaderMember(ctx context.Context, uid uint64) (*model.GroupMember, error)
	AddMembers(ctx context.Context, groupID uint64, uids []uint64) ([]uint64, error)
	RemoveMember(ctx context.Context, groupID, uid uint64) (bool, error)
}

type RoomRepoImpl struct {
	db *gorm.DB
}

func NewRoomRepo(db *gorm.DB) RoomRepo {
	return &RoomRepoImpl{db: db}
}

func (s *RoomRepoImpl) GetRoom(ctx context.Context, id uint64) (*model.Room, error) {
	room := &model.Room{}
	result := s.db.WithContext(ctx).First(room, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return room, nil
}

func (s *RoomRepoImpl) GetRoomsByIds(ctx context.Context, ids []uint64) ([]*model.Room, error) {
	rooms := make([]*model.Room, 0)
	if len(ids) == 0 {
		return rooms, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *RoomRepoImpl) GetHotRooms(ctx context.Context) ([]*model.Room, error) {
	rooms := make([]*model.Room, 0)
	err := s.db.WithContext(ctx).
		Where("hot_flag = ?", model.RoomHotFlagYes).
		Order("active_time DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// RefreshActive 只会把最后一条消息往后推
func (s *RoomRepoImpl) RefreshActive(ctx context.Context, roomID, msgID uint64, activeTime time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ? AND last_msg_id < ?", roomID, msgID).
		Updates(map[string]interface{}{
			"last_msg_id": msgID,
			"active_time": activeTime,
		}).Error
}

func (s *RoomRepoImpl) GetRoomFriend(ctx context.Context, roomID uint64) (*model.RoomFriend, error) {
	friend := &model.RoomFriend{}
	result := s.db.WithContext(ctx).Where("room_id = ?", roomID).First(friend)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return friend, nil
}

func (s *RoomRepoImpl) GetRoomFriendByKey(ctx context.Context, roomKey string) (*model.RoomFriend, error) {
	friend := &model.RoomFriend{}
	result := s.db.WithContext(ctx).Where("room_key = ?", roomKey).First(friend)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return friend, nil
}

func (s *RoomRepoImpl) GetRoomFriendsByRoomIds(ctx context.Context, roomIDs []uint64) ([]*model.RoomFriend, error) {
	friends := make([]*model.RoomFriend, 0)
	if len(roomIDs) == 0 {
		return friends, nil
	}
	if err := s.db.WithContext(ctx).Where("room_id IN ?", roomIDs).Find(&friends).Error; err != nil {
		return nil, err
	}
	return friends, nil
}

// CreateFriendRoom 同一对用户只会有一个单聊房间，room_key 冲突时返回唯一索引错误
func (s *RoomRepoImpl) CreateFriendRoom(ctx context.Context, uidA, uidB uint64) (*model.RoomFriend, error) {
	if uidA > uidB {
		uidA, uidB = uidB, uidA
	}
	friend := &model.RoomFriend{
		UID1:    uidA,
		UID2:    uidB,
		RoomKey: model.FriendRoomKey(uidA, uidB),
		Status:  model.RoomFriendNormal,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room := &model.Room{
			Type:       model.RoomTypeFriend,
			HotFlag:    model.RoomHotFlagNo,
			ActiveTime: time.Now(),
		}
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		friend.RoomID = room.ID
		return tx.Create(friend).Error
	})
	if err != nil {
		return nil, err
	}
	return friend, nil
}

func (s *RoomRepoImpl) UpdateFriendRoomStatus(ctx context.Context, roomKey string, status int8) error {
	return s.db.WithContext(ctx).
		Model(&model.RoomFriend{}).
		Where("room_key = ?", roomKey).
		Update("status", status).Error
}

func (s *RoomRepoImpl) GetRoomGroup(ctx context.Context, roomID uint64) (*model.RoomGroup, error) {
	group := &model.RoomGroup{}
	result := s.db.WithContext(ctx).
		Where("room_id = ? AND delete_status = 0", roomID).
		First(group)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return group, nil
}

func (s *RoomRepoImpl) GetRoomGroupsByRoomIds(ctx context.Context, roomIDs []uint64) ([]*model.RoomGroup, error) {
	groups := make([]*model.RoomGroup, 0)
	if len(roomIDs) == 0 {
		return groups, nil
	}
	if err := s.db.WithContext(ctx).Where("room_id IN ?", roomIDs).Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroupRoom 一个事务内创建房间、群和成员，创建者为群主
func (s *RoomRepoImpl) CreateGroupRoom(ctx context.Context, group *model.RoomGroup, leader uint64, members []uint64) (*model.Room, error) {
	room := &model.Room{
		Type:       model.RoomTypeGroup,
		HotFlag:    model.RoomHotFlagNo,
		ActiveTime: time.Now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		group.RoomID = room.ID
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		rows := []*model.GroupMember{{GroupID: group.ID, UID: leader, Role: model.GroupRoleLeader}}
		for _, uid := range members {
			if uid == leader {
				continue
			}
			rows = append(rows, &model.GroupMember{GroupID: group.ID, UID: uid, Role: model.GroupRoleMember})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (s *RoomRepoImpl) GetMember(ctx context.Context, groupID, uid uint64) (*model.GroupMember, error) {
	member := &model.GroupMember{}
	result := s.db.WithContext(ctx).
		Where("group_id = ? AND uid = ?", groupID, uid).
		First(member)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return member, nil
}

func (s *RoomRepoImpl) GetMembers(ctx context.Context, groupID uint64) ([]*model.GroupMember, error) {
	members := make([]*model.GroupMember, 0)
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("role ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *RoomRepoImpl) GetMemberUIDs(ctx context.Context, groupID uint64) ([]uint64, error) {
	uids := make([]uint64, 0)
	err := s.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("uid", &uids).Error
	if err != nil {
		return nil, err
	}
	return uids, nil
}

// GetLeaderMember 用户作为群主的群，没有返回 nil
func (s *RoomRepoImpl) GetLeaderMember(ctx context.Context, uid uint64) (*model.GroupMember, error) {
	member := &model.GroupMember{}
	result := s.db.WithContext(ctx).
		Where("uid = ? AND role = ?", uid, model.GroupRoleLeader).
		First(member)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return member, nil
}

// AddMembers 忽略已在群内的用户，返回本次新加入的 uid
func (s *RoomRepoImpl) AddMembers(ctx context.Context, groupID uint64, uids []uint64) ([]uint64, error) {
	added := make([]uint64, 0, len(uids))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, uid := range uids {
			member := &model.GroupMember{GroupID: groupID, UID: uid, Role: model.GroupRoleMember}
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(member)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				added = append(added, uid)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *RoomRepoImpl) RemoveMember(ctx context.Context, groupID, uid uint64) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("group_id = ? AND uid = ?", groupID, uid).
		Delete(&model.GroupMember{})
	return result.RowsAffected > 0, result.Error
}
