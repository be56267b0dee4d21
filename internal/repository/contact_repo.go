package repository

import (
	"Mallchat/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContactRepo interface {
	GetContact(ctx context.Context, uid, roomID uint64) (*model.Contact, error)
	GetContactsByRoom(ctx context.Context, roomID uint64, uids []uint64) ([]*model.Contact, error)
	RefreshOrCreate(ctx context.Context, roomID uint64, uids []uint64, msgID uint64, activeTime time.Time) error
	UpdateReadTime(ctx context.Context, uid, roomID uint64, readTime time.Time) error
	PageByUID(ctx context.Context, uid uint64, before time.Time, size int) ([]*model.Contact, error)
	DeleteByRoom(ctx context.Context, roomID uint64, uids []uint64) error
}

type ContactRepoImpl struct {
	db *gorm.DB
}

func NewContactRepo(db *gorm.DB) ContactRepo {
	return &ContactRepoImpl{db: db}
}

func (s *ContactRepoImpl) GetContact(ctx context.Context, uid, roomID uint64) (*model.Contact, error) {
	contact := &model.Contact{}
	result := s.db.WithContext(ctx).
		Where("uid = ? AND room_id = ?", uid, roomID).
		First(contact)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return contact, nil
}

func (s *ContactRepoImpl) GetContactsByRoom(ctx context.Context, roomID uint64, uids []uint64) ([]*model.Contact, error) {
	contacts := make([]*model.Contact, 0)
	query := s.db.WithContext(ctx).Where("room_id = ?", roomID)
	if len(uids) > 0 {
		query = query.Where("uid IN ?", uids)
	}
	if err := query.Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

// RefreshOrCreate 为每个成员刷新会话的最后消息与活跃时间，不存在则创建
func (s *ContactRepoImpl) RefreshOrCreate(ctx context.Context, roomID uint64, uids []uint64, msgID uint64, activeTime time.Time) error {
	if len(uids) == 0 {
		return nil
	}
	contacts := make([]*model.Contact, 0, len(uids))
	for _, uid := range uids {
		contacts = append(contacts, &model.Contact{
			UID:        uid,
			RoomID:     roomID,
			ActiveTime: activeTime,
			LastMsgID:  msgID,
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}, {Name: "room_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active_time", "last_msg_id", "updated_at"}),
		}).
		Create(&contacts).Error
}

func (s *ContactRepoImpl) UpdateReadTime(ctx context.Context, uid, roomID uint64, readTime time.Time) error {
	contact := &model.Contact{
		UID:        uid,
		RoomID:     roomID,
		ReadTime:   readTime,
		ActiveTime: readTime,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}, {Name: "room_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"read_time", "updated_at"}),
		}).
		Create(contact).Error
}

// PageByUID 按活跃时间倒序，before 为零值时从最新开始
func (s *ContactRepoImpl) PageByUID(ctx context.Context, uid uint64, before time.Time, size int) ([]*model.Contact, error) {
	contacts := make([]*model.Contact, 0, size)
	query := s.db.WithContext(ctx).Where("uid = ?", uid)
	if !before.IsZero() {
		query = query.Where("active_time < ?", before)
	}
	err := query.Order("active_time DESC").Order("id DESC").Limit(size).Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *ContactRepoImpl) DeleteByRoom(ctx context.Context, roomID uint64, uids []uint64) error {
	if len(uids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("room_id = ? AND uid IN ?", roomID, uids).
		Delete(&model.Contact{}).Error
}
