package wire

import (
	"Mallchat/internal/api"
	"Mallchat/internal/api/config"
	"Mallchat/internal/api/handler"
	"Mallchat/internal/job"
	"Mallchat/internal/pkg/cron"
	"Mallchat/internal/pkg/event"
	"Mallchat/internal/pkg/ipgeo"
	"Mallchat/internal/pkg/kafka"
	"Mallchat/internal/pkg/logger"
	"Mallchat/internal/pkg/minio"
	"Mallchat/internal/pkg/registry"
	"Mallchat/internal/pkg/sensitive"
	"Mallchat/internal/pkg/wechat"
	"Mallchat/internal/pkg/worker"
	"Mallchat/internal/pkg/ws"
	"Mallchat/internal/repository"
	"Mallchat/internal/service"
	"io"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	EventBusLocal = "local"
	EventBusKafka = "kafka"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router  *gin.Engine
	DB      *gorm.DB
	CronMgr *cron.Manager
	// KafkaManager 仅在 kafka 事件总线下存在
	KafkaManager *kafka.ConsumerManager
	Pool         *worker.Pool
	BusCloser    io.Closer
}

// Close 先停总线再停线程池，保证已投递的事件能执行完
func (s *ApplicationContainer) Close() {
	if s.BusCloser != nil {
		if err := s.BusCloser.Close(); err != nil {
			log.Error("event bus close failed", "err", err)
		}
	}
	s.Pool.Close()
}

func BuildApplication(db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	chatCfg := cfg.Chat
	lockOpts := service.LockOptions{Expire: chatCfg.LockExpire, Wait: chatCfg.LockWait}

	// 仓储
	userRepo := repository.NewUserRepo(db)
	userRolesRepo := repository.NewUserRolesRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	itemRepo := repository.NewItemRepo(db)
	roomRepo := repository.NewRoomRepo(db)
	contactRepo := repository.NewContactRepo(db)
	msgRepo := repository.NewMessageRepo(db)
	markRepo := repository.NewMessageMarkRepo(db)
	friendRepo := repository.NewFriendRepo(db)
	sensitiveWordRepo := repository.NewSensitiveWordRepo(db)

	// 基础设施
	pool := worker.NewPool(chatCfg.WorkerCount, chatCfg.QueueSize)
	dispatcher := event.NewDispatcher()
	codeExpire := time.Duration(chatCfg.LoginCodeExpire) * time.Second
	reg := registry.NewRedisRegistry(codeExpire)
	fabric := ws.NewRedisFabric()
	wx := wechat.NewClient(cfg.WeChat)
	resolver := ipgeo.NewResolver(cfg.IPGeo)

	filter := sensitive.NewFilter(nil)
	sensitiveWordService := service.NewSensitiveWordService(sensitiveWordRepo, filter)
	if err := sensitiveWordService.Reload(logger.NewBackgroundContext("boot")); err != nil {
		pool.Close()
		return nil, err
	}

	var (
		bus       event.Bus
		busCloser io.Closer
		kafkaMgr  *kafka.ConsumerManager
	)
	switch chatCfg.EventBus {
	case EventBusKafka:
		kafkaBus, err := kafka.NewEventBus(cfg)
		if err != nil {
			pool.Close()
			return nil, err
		}
		kafkaMgr, err = kafka.NewConsumerManager(cfg, dispatcher)
		if err != nil {
			_ = kafkaBus.Close()
			pool.Close()
			return nil, err
		}
		bus, busCloser = kafkaBus, kafkaBus
	default:
		bus = event.NewLocalBus(dispatcher, pool)
	}
	log.Info("event bus selected", "type", chatCfg.EventBus)

	// 消息类型策略
	var checkURL service.URLChecker
	if minio.Enabled() {
		checkURL = minio.IsManagedURL
	}
	handlers := service.NewMsgHandlerRegistry()
	handlers.Register(
		service.NewTextMsgHandler(userRepo, msgRepo, filter, handlers, chatCfg.GapJumpLimit),
		service.NewRecallMsgHandler(userRepo),
		service.NewImgMsgHandler(checkURL),
		service.NewFileMsgHandler(checkURL),
		service.NewSoundMsgHandler(checkURL),
		service.NewVideoMsgHandler(checkURL),
		service.NewEmojiMsgHandler(checkURL),
		service.NewSystemMsgHandler(),
	)

	// 业务服务
	itemService := service.NewItemService(itemRepo, userRepo, lockOpts)
	chatService := service.NewChatService(roomRepo, msgRepo, markRepo, contactRepo, userRolesRepo, handlers, bus,
		service.ChatOptions{RecallWindow: chatCfg.RecallWindow, Lock: lockOpts})
	userService := service.NewUserService(userRepo, itemRepo, filter, lockOpts)
	friendService := service.NewFriendService(friendRepo, userRepo, roomRepo, chatService, bus, lockOpts)
	roomService := service.NewRoomService(roomRepo, contactRepo, userRepo, msgRepo, handlers, chatService, bus, lockOpts)
	loginService := service.NewLoginService(userRepo, userRolesRepo, reg, fabric, wx, itemService, bus,
		service.LoginOptions{CodeExpire: codeExpire})
	roleService := service.NewRoleService(roleRepo, userRolesRepo, userRepo)
	ossService := service.NewOssService(15 * time.Minute)

	ratePerSecond := cfg.IPGeo.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	fanoutService := service.NewFanoutService(roomRepo, contactRepo, userRepo, msgRepo, markRepo, friendRepo,
		reg, fabric, pool, itemService, resolver,
		service.FanoutOptions{
			MarkBadgeThreshold: chatCfg.MarkBadgeThreshold,
			IPGeoRetry: worker.RetryPolicy{
				MaxRetries: cfg.IPGeo.MaxRetries,
				BaseDelay:  time.Second,
				MaxDelay:   30 * time.Second,
				Limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
			},
		})
	fanoutService.Register(dispatcher)

	// 定时任务
	cronMgr := cron.NewCronManager(
		job.NewSensitiveWordJob(sensitiveWordService),
		job.NewWxTokenJob(wx),
	)

	handlersGroup := &api.HandlersGroup{
		ChatHandler:   handler.NewChatHandler(chatService, userService),
		WxHandler:     handler.NewWxHandler(loginService, wx),
		WsHandler:     handler.NewWsHandler(loginService, ws.Options{IdleTimeout: chatCfg.WsIdleTimeout, PingInterval: chatCfg.WsPingInterval}),
		FriendHandler: handler.NewFriendHandler(friendService),
		RoomHandler:   handler.NewRoomHandler(roomService),
		UserHandler:   handler.NewUserHandler(userService),
		OssHandler:    handler.NewOssHandler(ossService),
		AdminHandler:  handler.NewAdminHandler(sensitiveWordService, roleService),
	}

	router := api.SetupRouter(handlersGroup)

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		CronMgr:      cronMgr,
		KafkaManager: kafkaMgr,
		Pool:         pool,
		BusCloser:    busCloser,
	}, nil
}
