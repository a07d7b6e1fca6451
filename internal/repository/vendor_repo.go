package repository

import (
	"context"

	"shopify_vendor_hub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VendorFilter 供应商过滤条件
type VendorFilter struct {
	ShopDomain string
	Keyword    string // 名称 / 邮箱 ILIKE
	Page       int
	PageSize   int
}

// VendorRepository 供应商仓库接口
type VendorRepository interface {
	GetByID(ctx context.Context, shopDomain string, id int64) (*model.Vendor, error)
	FindByNameAndShop(ctx context.Context, name, shopDomain string) (*model.Vendor, error)
	CreateIfAbsent(ctx context.Context, vendor *model.Vendor) (bool, error)
	List(ctx context.Context, filter VendorFilter) ([]model.Vendor, int64, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	CountByShop(ctx context.Context, shopDomain string) (int64, error)
}

type vendorRepository struct {
	db *gorm.DB
}

// NewVendorRepository 创建供应商仓库
func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) GetByID(ctx context.Context, shopDomain string, id int64) (*model.Vendor, error) {
	var vendor model.Vendor
	err := r.db.WithContext(ctx).Where("shop_domain = ?", shopDomain).First(&vendor, id).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) FindByNameAndShop(ctx context.Context, name, shopDomain string) (*model.Vendor, error) {
	var vendor model.Vendor
	err := r.db.WithContext(ctx).
		Where("name = ? AND shop_domain = ?", name, shopDomain).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// CreateIfAbsent 插入供应商，(name, shop_domain) 冲突时什么也不做并回查已有记录
// 并发同步同一新供应商时的唯一约束冲突属于良性竞争
func (r *vendorRepository) CreateIfAbsent(ctx context.Context, vendor *model.Vendor) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "shop_domain"}},
		DoNothing: true,
	}).Create(vendor)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	existing, err := r.FindByNameAndShop(ctx, vendor.Name, vendor.ShopDomain)
	if err != nil {
		return false, err
	}
	*vendor = *existing
	return false, nil
}

func (r *vendorRepository) List(ctx context.Context, filter VendorFilter) ([]model.Vendor, int64, error) {
	var vendors []model.Vendor
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Vendor{}).Where("shop_domain = ?", filter.ShopDomain)
	if filter.Keyword != "" {
		keyword := containsPattern(filter.Keyword)
		db = db.Where("("+likeClause(r.db, "name")+" OR "+likeClause(r.db, "email")+")", keyword, keyword)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	err := db.Order("name ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&vendors).Error

	return vendors, total, err
}

func (r *vendorRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Vendor{}).Where("id = ?", id).Updates(fields).Error
}

func (r *vendorRepository) CountByShop(ctx context.Context, shopDomain string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Vendor{}).Where("shop_domain = ?", shopDomain).Count(&count).Error
	return count, err
}
