package dto

import "time"

// ==================== 登录 ====================

// VendorLoginReq 供应商登录
type VendorLoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=1,max=100"`
}

// LoginResp 登录响应
type LoginResp struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        ProfileResp `json:"user"`
	// 首次安装时为 true，表示初始同步已在后台启动
	InitialSyncStarted bool `json:"initial_sync_started,omitempty"`
}

// ==================== 个人资料 ====================

// ProfileResp 个人资料
type ProfileResp struct {
	ID                   int64      `json:"id"`
	Role                 string     `json:"role"`
	Email                string     `json:"email"`
	Name                 string     `json:"name"`
	ShopDomain           *string    `json:"shop_domain"`
	NotifyMode           *string    `json:"notify_mode"`
	NotifyValue          *string    `json:"notify_value"`
	LastNotifiedAt       *time.Time `json:"last_notified_at"`
	InitialSyncCompleted bool       `json:"initial_sync_completed"`
	LastActive           *time.Time `json:"last_active"`
}

// ProfileUpdateReq 更新个人资料
// notify_mode 传空串表示关闭定时通知
type ProfileUpdateReq struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	NotifyMode  *string `json:"notify_mode"`
	NotifyValue *string `json:"notify_value" binding:"omitempty,max=50"`
}
