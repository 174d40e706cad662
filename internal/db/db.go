package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

type Options struct {
	Driver     string // postgres | sqlite
	DSN        string
	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration
	Logger     *zap.Logger
	LogLevel   gormlogger.LogLevel
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres", "":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// Connect opens the store handle. It retries with exponential backoff until
// MaxRetries is exhausted or ctx ends, then pings the pool.
func Connect(ctx context.Context, opt Options) (*gorm.DB, error) {
	dial, err := dialector(opt.Driver, opt.DSN)
	if err != nil {
		return nil, err
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	b := backoff{delay: opt.RetryDelay, maxDelay: opt.MaxDelay}
	if b.delay <= 0 {
		b.delay = 500 * time.Millisecond
	}
	if b.maxDelay <= 0 {
		b.maxDelay = 30 * time.Second
	}

	cfg := &gorm.Config{
		Logger:         gormLogger{zap: log, level: opt.LogLevel},
		TranslateError: true,
	}

	var gdb *gorm.DB
	for attempt := 0; ; attempt++ {
		gdb, err = gorm.Open(dial, cfg)
		if err == nil {
			err = ping(ctx, gdb)
		}
		if err == nil {
			break
		}
		if attempt >= opt.MaxRetries {
			return nil, fmt.Errorf("open %s failed after %d attempts: %w", opt.Driver, attempt+1, err)
		}
		wait := b.nextDelay(attempt)
		log.Warn("database not reachable, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("open %s canceled: %w", opt.Driver, ctx.Err())
		case <-time.After(wait):
		}
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	if opt.Driver == "sqlite" {
		// one writer; concurrent transactions queue on the pool instead of failing with SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	return gdb, nil
}

func ping(ctx context.Context, gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctxPing)
}

// Migrate creates or updates every table the service owns.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Freelancer{},
		&models.Project{},
		&models.Application{},
		&models.ProjectEvent{},
		&models.Chat{},
		&models.ChatMessage{},
	)
}

// Close releases the pool. Safe to call with nil.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type backoff struct {
	delay    time.Duration
	maxDelay time.Duration
}

func (b backoff) nextDelay(attempt int) time.Duration {
	if attempt > 16 {
		return b.maxDelay
	}
	d := b.delay << attempt
	if d > b.maxDelay {
		return b.maxDelay
	}
	return d
}

type gormLogger struct {
	zap   *zap.Logger
	level gormlogger.LogLevel
}

func (l gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	l.level = level
	return l
}

func (l gormLogger) Info(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.zap.Sugar().Infof(s, args...)
	}
}

func (l gormLogger) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.zap.Sugar().Warnf(s, args...)
	}
}

func (l gormLogger) Error(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.zap.Sugar().Errorf(s, args...)
	}
}

func (l gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	sql, rows := fc()
	dur := time.Since(begin)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey) {
		l.zap.Error("gorm query error", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql), zap.Error(err))
		return
	}
	if l.level >= gormlogger.Info {
		l.zap.Debug("gorm query", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql))
	}
}
