package logger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SlogGormLogger 唯一索引冲突是幂等写入的正常分支，只记 Warn
type SlogGormLogger struct {
	LogLevel      logger.LogLevel
	SlowThreshold time.Duration
}

func NewGormLogger() *SlogGormLogger {
	return &SlogGormLogger{LogLevel: logger.Warn, SlowThreshold: 200 * time.Millisecond}
}

func (l *SlogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	n := *l
	n.LogLevel = level
	return &n
}

func (l *SlogGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Info {
		slog.InfoContext(ctx, msg, "data", data)
	}
}

func (l *SlogGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Warn {
		slog.WarnContext(ctx, msg, "data", data)
	}
}

func (l *SlogGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Error {
		slog.ErrorContext(ctx, msg, "data", data)
	}
}

func (l *SlogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	msg := "MySQL " + sqlOperation(sql)
	fields := []any{
		slog.String("sql", sql),
		slog.Duration("latency", elapsed),
		slog.Int64("rows", rows),
	}

	switch {
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil && errors.Is(err, gorm.ErrDuplicatedKey):
		if l.LogLevel >= logger.Warn {
			slog.WarnContext(ctx, msg+" Duplicate", append(fields, slog.Any("err", err))...)
		}
		return
	case err != nil:
		if l.LogLevel >= logger.Error {
			slog.ErrorContext(ctx, msg+" Error", append(fields, slog.Any("err", err))...)
		}
		return
	}

	if l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.LogLevel >= logger.Warn {
		slog.WarnContext(ctx, msg+" Slow", fields...)
	} else if l.LogLevel >= logger.Info {
		slog.InfoContext(ctx, msg, fields...)
	}
}

func sqlOperation(sql string) string {
	sql = strings.TrimSpace(sql)
	if i := strings.IndexByte(sql, ' '); i > 0 {
		return strings.ToUpper(sql[:i])
	}
	return "QUERY"
}
