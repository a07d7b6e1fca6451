package repository

import (
	"context"
	"time"

	"shopify_vendor_hub/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户仓库接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetStoreOwner(ctx context.Context, shopDomain string) (*model.User, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// 通知调度
	ListNotifiable(ctx context.Context) ([]model.User, error)
	UpdateLastNotifiedAt(ctx context.Context, id int64, at time.Time) error

	// 实时通道
	TouchLastActive(ctx context.Context, id int64, at time.Time) error
	ListCounterparts(ctx context.Context, user *model.User) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetStoreOwner(ctx context.Context, shopDomain string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("shop_domain = ? AND role = ?", shopDomain, model.RoleStoreOwner).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *userRepository) ListNotifiable(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND notify_mode IS NOT NULL AND notify_mode <> ''", model.RoleStoreOwner).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) UpdateLastNotifiedAt(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_notified_at", at).Error
}

func (r *userRepository) TouchLastActive(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_active", at).Error
}

// ListCounterparts 对端联系人：店主 -> 其供应商账号；供应商 -> 其所属店主
// 供应商目录与用户目录通过 email 精确匹配关联
func (r *userRepository) ListCounterparts(ctx context.Context, user *model.User) ([]model.User, error) {
	var users []model.User
	db := r.db.WithContext(ctx).Model(&model.User{}).Distinct("users.*")

	switch user.Role {
	case model.RoleStoreOwner:
		db = db.Joins("JOIN vendors v ON v.email = users.email").
			Where("v.shop_domain = ? AND users.role = ?", user.Domain(), model.RoleVendor)
	case model.RoleVendor:
		db = db.Joins("JOIN vendors v ON v.shop_domain = users.shop_domain").
			Where("v.email = ? AND users.role = ?", user.Email, model.RoleStoreOwner)
	default:
		return nil, nil
	}

	err := db.Find(&users).Error
	return users, err
}
