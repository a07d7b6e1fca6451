package model

import (
	"time"
)

// 用户角色
const (
	RoleStoreOwner = "store_owner" // 店主（租户）
	RoleVendor     = "vendor"      // 供应商
)

// 通知模式
const (
	NotifyModeEveryXHours  = "every_x_hours" // 每隔 N 小时
	NotifyModeSpecificTime = "specific_time" // 每天固定时刻，如 "8 AM"
)

// User 用户（店主 / 供应商）
type User struct {
	BaseModel
	Role  string `gorm:"size:20;not null;index" json:"role"`
	Email string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name  string `gorm:"size:255" json:"name"`

	// 店主必填，供应商为空
	ShopDomain *string `gorm:"size:255;uniqueIndex" json:"shop_domain"`

	// --- 通知调度 ---
	NotifyMode     *string    `gorm:"size:20" json:"notify_mode"`
	NotifyValue    *string    `gorm:"size:50" json:"notify_value"`
	LastNotifiedAt *time.Time `json:"last_notified_at"`

	InitialSyncCompleted bool       `json:"initial_sync_completed"`
	LastActive           *time.Time `json:"last_active"`

	// --- 凭证（不输出） ---
	PasswordHash string `gorm:"size:255" json:"-"`
	AccessToken  string `gorm:"size:255" json:"-"`
	Scope        string `gorm:"size:500" json:"-"`
}

func (User) TableName() string { return "users" }

// IsStoreOwner 是否店主
func (u *User) IsStoreOwner() bool {
	return u.Role == RoleStoreOwner
}

// IsVendor 是否供应商
func (u *User) IsVendor() bool {
	return u.Role == RoleVendor
}

// Domain 店铺域名（供应商返回空串）
func (u *User) Domain() string {
	if u.ShopDomain == nil {
		return ""
	}
	return *u.ShopDomain
}

// Mode 通知模式（未配置返回空串）
func (u *User) Mode() string {
	if u.NotifyMode == nil {
		return ""
	}
	return *u.NotifyMode
}

// ModeValue 通知参数（未配置返回空串）
func (u *User) ModeValue() string {
	if u.NotifyValue == nil {
		return ""
	}
	return *u.NotifyValue
}
