package service

import (
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/repository"
	"context"
	"fmt"
	log "log/slog"
)

type ItemService interface {
	// Grant 按幂等键发放物品，已发放或已拥有徽章时返回 false
	Grant(ctx context.Context, uid, itemID uint64, idempotent string) (bool, error)
	GrantRegistrationItems(ctx context.Context, uid uint64) error
}

type ItemServiceImpl struct {
	itemRepo repository.ItemRepo
	userRepo repository.UserRepo
	lockOpts LockOptions
}

func NewItemService(itemRepo repository.ItemRepo, userRepo repository.UserRepo, lockOpts LockOptions) ItemService {
	return &ItemServiceImpl{
		itemRepo: itemRepo,
		userRepo: userRepo,
		lockOpts: lockOpts,
	}
}

// ItemIdempotentKey 物品id_业务来源_业务id
func ItemIdempotentKey(itemID uint64, source string, businessID uint64) string {
	return fmt.Sprintf("%d_%s_%d", itemID, source, businessID)
}

func (s *ItemServiceImpl) Grant(ctx context.Context, uid, itemID uint64, idempotent string) (bool, error) {
	lock, err := acquireLock(ctx, consts.ItemLock+idempotent, s.lockOpts)
	if err != nil {
		return false, err
	}
	defer lock.Release()

	existing, err := s.itemRepo.GetBackpackByIdempotent(ctx, idempotent)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	item, err := s.itemRepo.GetItemConfig(ctx, itemID)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, fmt.Errorf("item %d not configured", itemID)
	}
	if item.Type == consts.ItemTypeBadge {
		owned, err := s.itemRepo.HasItem(ctx, uid, itemID)
		if err != nil {
			return false, err
		}
		if owned {
			return false, nil
		}
	}

	err = s.itemRepo.CreateBackpack(ctx, &model.UserBackpack{
		UID:        uid,
		ItemID:     itemID,
		Status:     model.BackpackUnused,
		Idempotent: idempotent,
	})
	if err != nil {
		if repository.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	log.InfoContext(ctx, "发放物品", "uid", uid, "itemId", itemID, "idempotent", idempotent)
	return true, nil
}

// GrantRegistrationItems 注册送一张改名卡，前 10 / 前 100 名注册用户送徽章
func (s *ItemServiceImpl) GrantRegistrationItems(ctx context.Context, uid uint64) error {
	if _, err := s.Grant(ctx, uid, consts.ItemModifyNameCard, ItemIdempotentKey(consts.ItemModifyNameCard, "reg", uid)); err != nil {
		return err
	}

	count, err := s.userRepo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count <= 10 {
		if _, err = s.Grant(ctx, uid, consts.ItemRegTop10Badge, ItemIdempotentKey(consts.ItemRegTop10Badge, "reg", uid)); err != nil {
			return err
		}
	}
	if count <= 100 {
		if _, err = s.Grant(ctx, uid, consts.ItemRegTop100Badge, ItemIdempotentKey(consts.ItemRegTop100Badge, "reg", uid)); err != nil {
			return err
		}
	}
	return nil
}
