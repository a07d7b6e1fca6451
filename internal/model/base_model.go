package model

import (
	"time"
)

// BaseModel 通用主键与时间戳
// 业务数据不做软删除，唯一的物理删除路径是租户注销清理
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllModels 需要自动迁移的全部模型（顺序即建表顺序）
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Vendor{},
		&Product{},
		&Order{},
		&OrderLineItem{},
		&SyncLog{},
		&Message{},
		&MessageRecipient{},
	}
}
