package service

import (
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/database"
	"Mallchat/internal/pkg/event"
	"Mallchat/internal/pkg/ipgeo"
	"Mallchat/internal/pkg/redis"
	"Mallchat/internal/pkg/registry"
	"Mallchat/internal/pkg/sensitive"
	"Mallchat/internal/pkg/worker"
	"Mallchat/internal/pkg/ws"
	"Mallchat/internal/repository"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeFabric 记录所有推送，gone 中的句柄视为已断开
type fakeFabric struct {
	mu      sync.Mutex
	handles map[string][]*ws.Envelope
	groups  map[string][]*ws.Envelope
	gone    map[string]bool
}

func newFakeFabric() *fakeFabric {
	return &fakeFabric{
		handles: make(map[string][]*ws.Envelope),
		groups:  make(map[string][]*ws.Envelope),
		gone:    make(map[string]bool),
	}
}

func (f *fakeFabric) PushToHandle(_ context.Context, handle string, env *ws.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[handle] {
		return ws.ErrHandleGone
	}
	f.handles[handle] = append(f.handles[handle], env)
	return nil
}

func (f *fakeFabric) PushToGroup(_ context.Context, group string, env *ws.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[group] = append(f.groups[group], env)
	return nil
}

type pushedFrame struct {
	Type int             `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (f *fakeFabric) handleFrames(t *testing.T, handle string, frameType int) []pushedFrame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	return filterFrames(t, f.handles[handle], frameType)
}

func (f *fakeFabric) groupFrames(t *testing.T, frameType int) []pushedFrame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	return filterFrames(t, f.groups[consts.BroadcastGroup], frameType)
}

func filterFrames(t *testing.T, envs []*ws.Envelope, frameType int) []pushedFrame {
	frames := make([]pushedFrame, 0)
	for _, env := range envs {
		var frame pushedFrame
		require.NoError(t, json.Unmarshal(env.Data, &frame))
		if frame.Type == frameType {
			frames = append(frames, frame)
		}
	}
	return frames
}

// inlineSubmitter 同步执行任务
type inlineSubmitter struct{}

func (inlineSubmitter) Submit(ctx context.Context, _ string, fn worker.TaskFunc) error {
	return fn(ctx)
}

func (inlineSubmitter) SubmitRetry(ctx context.Context, _ string, fn worker.TaskFunc, _ worker.RetryPolicy) error {
	return fn(ctx)
}

type fakeResolver struct {
	calls int
}

func (r *fakeResolver) Resolve(_ context.Context, ip string) (*ipgeo.Detail, error) {
	r.calls++
	return &ipgeo.Detail{IP: ip, Country: "中国", Region: "广东", City: "深圳", ISP: "电信"}, nil
}

type testEnv struct {
	db         *gorm.DB
	mr         *miniredis.Miniredis
	fabric     *fakeFabric
	registry   registry.Registry
	resolver   *fakeResolver
	dispatcher *event.Dispatcher

	userRepo      repository.UserRepo
	userRolesRepo repository.UserRolesRepo
	itemRepo      repository.ItemRepo
	roomRepo      repository.RoomRepo
	contactRepo   repository.ContactRepo
	msgRepo       repository.MessageRepo
	markRepo      repository.MessageMarkRepo
	friendRepo    repository.FriendRepo

	filter   *sensitive.Filter
	handlers *MsgHandlerRegistry

	chat   *ChatServiceImpl
	item   ItemService
	user   UserService
	friend FriendService
	room   RoomService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,

		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	redis.Rdb = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redis.Rdb.Close() })

	env := &testEnv{
		db:         db,
		mr:         mr,
		fabric:     newFakeFabric(),
		registry:   registry.NewRedisRegistry(time.Minute),
		resolver:   &fakeResolver{},
		dispatcher: event.NewDispatcher(),

		userRepo:      repository.NewUserRepo(db),
		userRolesRepo: repository.NewUserRolesRepo(db),
		itemRepo:      repository.NewItemRepo(db),
		roomRepo:      repository.NewRoomRepo(db),
		contactRepo:   repository.NewContactRepo(db),
		msgRepo:       repository.NewMessageRepo(db),
		markRepo:      repository.NewMessageMarkRepo(db),
		friendRepo:    repository.NewFriendRepo(db),

		filter:   sensitive.NewFilter([]string{"foo", "bar"}),
		handlers: NewMsgHandlerRegistry(),
	}
	bus := event.NewSyncBus(env.dispatcher)
	lockOpts := LockOptions{Expire: time.Second, Wait: 200 * time.Millisecond}

	checkURL := func(raw string) bool { return raw != "" }
	env.handlers.Register(
		NewTextMsgHandler(env.userRepo, env.msgRepo, env.filter, env.handlers, 100),
		NewRecallMsgHandler(env.userRepo),
		NewImgMsgHandler(checkURL),
		NewFileMsgHandler(checkURL),
		NewSoundMsgHandler(checkURL),
		NewVideoMsgHandler(checkURL),
		NewEmojiMsgHandler(checkURL),
		NewSystemMsgHandler(),
	)

	env.item = NewItemService(env.itemRepo, env.userRepo, lockOpts)
	env.chat = NewChatService(env.roomRepo, env.msgRepo, env.markRepo, env.contactRepo, env.userRolesRepo,
		env.handlers, bus, ChatOptions{RecallWindow: 2 * time.Minute, Lock: lockOpts}).(*ChatServiceImpl)
	env.user = NewUserService(env.userRepo, env.itemRepo, env.filter, lockOpts)
	env.friend = NewFriendService(env.friendRepo, env.userRepo, env.roomRepo, env.chat, bus, lockOpts)
	env.room = NewRoomService(env.roomRepo, env.contactRepo, env.userRepo, env.msgRepo, env.handlers, env.chat, bus, lockOpts)

	fanout := NewFanoutService(env.roomRepo, env.contactRepo, env.userRepo, env.msgRepo, env.markRepo, env.friendRepo,
		env.registry, env.fabric, inlineSubmitter{}, env.item, env.resolver,
		FanoutOptions{MarkBadgeThreshold: 2})
	fanout.Register(env.dispatcher)

	env.seedItems(t)
	return env
}

func (e *testEnv) seedItems(t *testing.T) {
	t.Helper()
	items := []*model.ItemConfig{
		{ID: consts.ItemModifyNameCard, Type: consts.ItemTypeCard, Describe: "改名卡"},
		{ID: consts.ItemLikeBadge, Type: consts.ItemTypeBadge, Describe: "爆赞徽章"},
		{ID: consts.ItemRegTop10Badge, Type: consts.ItemTypeBadge, Describe: "前十注册"},
		{ID: consts.ItemRegTop100Badge, Type: consts.ItemTypeBadge, Describe: "前百注册"},
	}
	require.NoError(t, e.db.Create(&items).Error)
}

func (e *testEnv) createUser(t *testing.T, id uint64, name string) *model.User {
	t.Helper()
	user := &model.User{
		ID:          id,
		Name:        name,
		OpenID:      fmt.Sprintf("openid-%d", id),
		Active:      model.UserActiveOffline,
		LastOptTime: time.Now(),
	}
	require.NoError(t, e.userRepo.CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) grantRole(t *testing.T, uid uint64, roleName string) {
	t.Helper()
	role := &model.Role{Name: roleName}
	require.NoError(t, e.db.Create(role).Error)
	require.NoError(t, e.userRolesRepo.AddRoleToUser(context.Background(), uid, role.ID))
}

func (e *testEnv) createBroadcastRoom(t *testing.T) *model.Room {
	t.Helper()
	room := &model.Room{Type: model.RoomTypeGroup, HotFlag: model.RoomHotFlagYes, ActiveTime: time.Now()}
	require.NoError(t, e.db.Create(room).Error)
	require.NoError(t, e.db.Create(&model.RoomGroup{RoomID: room.ID, Name: "全员群"}).Error)
	return room
}

func (e *testEnv) createFriendRoom(t *testing.T, uidA, uidB uint64) uint64 {
	t.Helper()
	friend, err := e.roomRepo.CreateFriendRoom(context.Background(), uidA, uidB)
	require.NoError(t, err)
	return friend.RoomID
}

func (e *testEnv) createGroupRoom(t *testing.T, leader uint64, members ...uint64) (*model.Room, *model.RoomGroup) {
	t.Helper()
	group := &model.RoomGroup{Name: "小组"}
	room, err := e.roomRepo.CreateGroupRoom(context.Background(), group, leader, members)
	require.NoError(t, err)
	return room, group
}

func textBody(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
