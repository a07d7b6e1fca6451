package repository

import (
	"context"

	"shopify_vendor_hub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter 商品过滤条件
type ProductFilter struct {
	ShopDomain string
	Search     string // 标题 ILIKE
	VendorName string // 精确匹配
	Page       int
	PageSize   int
}

// ProductRepository 商品仓库接口
type ProductRepository interface {
	GetByID(ctx context.Context, shopDomain string, id int64) (*model.Product, error)
	FindByShopifyID(ctx context.Context, shopifyProductID int64) (*model.Product, error)
	Upsert(ctx context.Context, product *model.Product) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, shopDomain string, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("shop_domain = ?", shopDomain).First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByShopifyID(ctx context.Context, shopifyProductID int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("shopify_product_id = ?", shopifyProductID).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Upsert 按 shopify_product_id 插入或刷新展示字段，内部 ID 保持不变
func (r *productRepository) Upsert(ctx context.Context, product *model.Product) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shopify_product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "image_url", "vendor_name", "vendor_id", "updated_at",
		}),
	}).Create(product).Error
	if err != nil {
		return err
	}

	stored, err := r.FindByShopifyID(ctx, product.ShopifyProductID)
	if err != nil {
		return err
	}
	*product = *stored
	return nil
}

func (r *productRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Product{}).Where("shop_domain = ?", filter.ShopDomain)
	if filter.Search != "" {
		db = db.Where(likeClause(r.db, "title"), containsPattern(filter.Search))
	}
	if filter.VendorName != "" {
		db = db.Where("vendor_name = ?", filter.VendorName)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	err := db.Order("id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&products).Error

	return products, total, err
}
