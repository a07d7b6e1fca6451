package repository

import (
	"context"
	"time"

	"shopify_vendor_hub/internal/model"

	"gorm.io/gorm"
)

// SyncLogFilter 同步日志过滤条件
type SyncLogFilter struct {
	ShopDomain string
	SyncType   string
	Status     string
	Page       int
	PageSize   int
}

// SyncLogRepository 同步日志仓库接口
type SyncLogRepository interface {
	Open(ctx context.Context, shopDomain, syncType, entityType string) (*model.SyncLog, error)
	Close(ctx context.Context, id int64, status string, synced int, errMsg string) error
	FindOpen(ctx context.Context, shopDomain, syncType, entityType string) (*model.SyncLog, error)
	List(ctx context.Context, filter SyncLogFilter) ([]model.SyncLog, int64, error)
}

type syncLogRepository struct {
	db *gorm.DB
}

// NewSyncLogRepository 创建同步日志仓库
func NewSyncLogRepository(db *gorm.DB) SyncLogRepository {
	return &syncLogRepository{db: db}
}

func (r *syncLogRepository) Open(ctx context.Context, shopDomain, syncType, entityType string) (*model.SyncLog, error) {
	entry := &model.SyncLog{
		ShopDomain: shopDomain,
		SyncType:   syncType,
		EntityType: entityType,
		Status:     model.SyncStatusRunning,
		StartedAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *syncLogRepository) Close(ctx context.Context, id int64, status string, synced int, errMsg string) error {
	return r.db.WithContext(ctx).Model(&model.SyncLog{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{
			"status":        status,
			"synced_count":  synced,
			"error_message": errMsg,
			"completed_at":  time.Now(),
		}).Error
}

func (r *syncLogRepository) FindOpen(ctx context.Context, shopDomain, syncType, entityType string) (*model.SyncLog, error) {
	var entry model.SyncLog
	err := r.db.WithContext(ctx).
		Where("shop_domain = ? AND sync_type = ? AND entity_type = ? AND completed_at IS NULL", shopDomain, syncType, entityType).
		Order("started_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *syncLogRepository) List(ctx context.Context, filter SyncLogFilter) ([]model.SyncLog, int64, error) {
	var logs []model.SyncLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SyncLog{}).Where("shop_domain = ?", filter.ShopDomain)
	if filter.SyncType != "" {
		db = db.Where("sync_type = ?", filter.SyncType)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	err := db.Order("started_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&logs).Error

	return logs, total, err
}
