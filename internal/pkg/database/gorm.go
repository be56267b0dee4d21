package database

import (
	"Mallchat/internal/api/config"
	"Mallchat/internal/model"
	"Mallchat/internal/pkg/logger"
	"fmt"
	log "log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewGormDB 初始化并返回 *gorm.DB 实例，处理连接池配置
func NewGormDB(cfg *config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	dialector = mysql.Open(cfg.DSN)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)

	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %w", err)
	}

	if cfg.AutoMigrate {
		if err = AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate failed: %w", err)
		}
	}

	log.Info("Database connection established successfully.")
	return db, nil
}

// Models 全部表结构
func Models() []any {
	return []any{
		&model.User{},
		&model.Role{},
		&model.UserRole{},
		&model.ItemConfig{},
		&model.UserBackpack{},
		&model.Room{},
		&model.RoomFriend{},
		&model.RoomGroup{},
		&model.GroupMember{},
		&model.Contact{},
		&model.Message{},
		&model.MessageMark{},
		&model.UserApply{},
		&model.UserFriend{},
		&model.SensitiveWord{},
	}
}

// AutoMigrate 建表，线上库由 DBA 维护时关闭
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
