package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pokerjest/animeshelf/internal/logging"
	"github.com/pokerjest/animeshelf/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// gormWriter routes gorm's own log lines into zerolog.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logging.Warn().Str("component", "gorm").Msgf(format, args...)
}

// 查不到记录是正常分支（新番剧、新季度），不打日志
func newGormLogger() logger.Interface {
	return logger.New(gormWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open connects to the sqlite file at storagePath and migrates the catalog tables.
func Open(storagePath string) (*gorm.DB, error) {
	inMemory := storagePath == ":memory:" || strings.HasPrefix(storagePath, "file::memory:")

	// 确保存储目录存在
	if !inMemory {
		dir := filepath.Dir(storagePath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	conn, err := gorm.Open(sqlite.Open(storagePath), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if inMemory {
		// every new connection to :memory: would see an empty database
		sqlDB.SetMaxOpenConns(1)
	} else {
		if err := conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			return nil, fmt.Errorf("pragma journal_mode: %w", err)
		}
	}

	if err := conn.AutoMigrate(&model.Series{}, &model.Season{}, &model.EpisodeWatch{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return conn, nil
}

// InitDB opens the database and installs it as the package-level handle.
func InitDB(storagePath string) error {
	conn, err := Open(storagePath)
	if err != nil {
		return err
	}
	DB = conn
	return nil
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	DB = nil
	return sqlDB.Close()
}
