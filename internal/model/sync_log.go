package model

import (
	"time"
)

// 同步类型
const (
	SyncTypeInitial = "initial"
	SyncTypeWebhook = "webhook"
	SyncTypeManual  = "manual"
)

// 同步状态
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// 同步实体
const (
	SyncEntityOrders  = "orders"
	SyncEntityVendors = "vendors"
)

// SyncLog 同步日志
// completed_at 为空表示仍在运行，由同一条记录的更新关闭
type SyncLog struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopDomain   string     `gorm:"size:255;not null;index" json:"shop_domain"`
	SyncType     string     `gorm:"size:20;not null" json:"sync_type"`
	EntityType   string     `gorm:"size:30;not null" json:"entity_type"`
	Status       string     `gorm:"size:20;not null;index" json:"status"`
	SyncedCount  int        `json:"synced_count"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
}

func (SyncLog) TableName() string { return "sync_logs" }
