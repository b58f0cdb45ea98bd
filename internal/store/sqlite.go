package store

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLiteStore 基于 gorm + 纯 Go SQLite 驱动的持久化实现。
type SQLiteStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenSQLite 打开（必要时创建）path 指向的 SQLite 库并迁移表结构。
// path 传 ":memory:" 时使用内存库（测试用）。
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := db.AutoMigrate(&AttackExchange{}, &AuditRecord{}); err != nil {
		return nil, fmt.Errorf("migrate audit schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With(zap.String("component", "store")),
	}, nil
}

// SaveExchange 追加一次攻击交换。
func (s *SQLiteStore) SaveExchange(ctx context.Context, ex *AttackExchange) error {
	if err := s.db.WithContext(ctx).Create(ex).Error; err != nil {
		return fmt.Errorf("save exchange: %w", err)
	}
	return nil
}

// SaveOutcome 追加一个 persona 的审计结果。
func (s *SQLiteStore) SaveOutcome(ctx context.Context, rec *AuditRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("save outcome: %w", err)
	}
	return nil
}

// Close 释放底层连接。重复调用安全。
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
