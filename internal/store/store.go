// Package store persists audit transcripts and outcomes.
// 核心逻辑只依赖 Store 接口；SQLite 实现是可替换的后端之一。
package store

import (
	"context"
	"time"
)

// AttackExchange 一次攻击交换（探测 + 应答）。
type AttackExchange struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"index"`
	PersonaID string `gorm:"index"`
	Turn      int
	Probe     string
	Response  string
	CreatedAt time.Time
}

// AuditRecord 一个 persona 的最终审计结果。
type AuditRecord struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"index"`
	PersonaID     string `gorm:"index"`
	TestType      string
	Achieved      bool
	Rationale     string
	TurnsExecuted int
	Error         string
	CreatedAt     time.Time
}

// Store 审计持久化后端。
// Close 由编排器在所有退出路径上调用，且恰好一次。
type Store interface {
	SaveExchange(ctx context.Context, ex *AttackExchange) error
	SaveOutcome(ctx context.Context, rec *AuditRecord) error
	Close() error
}
