package repository

import (
	"context"
	"time"

	"shopify_vendor_hub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== 过滤条件 ====================

// OrderFilter 订单过滤条件
type OrderFilter struct {
	ShopDomain   string
	Name         string // ILIKE 模糊匹配
	Notification *bool
	Page         int
	PageSize     int
}

// PendingLineItem 待通知明细（明细 + 订单 + 商品 + 供应商 + 供应商账号 联表）
// VendorID / VendorUserID 为空表示商品未关联供应商或供应商没有对应账号
type PendingLineItem struct {
	LineItemID       int64
	OrderID          int64
	ShopifyOrderID   int64
	OrderName        string
	Quantity         int
	ProductID        int64
	ShopifyProductID int64
	Title            string
	ImageURL         string
	VendorName       string
	VendorID         *int64
	VendorEmail      *string
	VendorUserID     *int64
}

// ==================== OrderRepository 订单仓库 ====================

// OrderRepository 订单仓库接口
type OrderRepository interface {
	GetByID(ctx context.Context, shopDomain string, id int64) (*model.Order, error)
	GetByShopifyID(ctx context.Context, shopifyOrderID int64) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)

	// 同步相关
	Upsert(ctx context.Context, order *model.Order) error
	InsertLineItemIfAbsent(ctx context.Context, item *model.OrderLineItem) (bool, error)
	CountLineItems(ctx context.Context, orderID int64) (int64, error)

	// 通知相关
	ListPendingLineItems(ctx context.Context, shopDomain string) ([]PendingLineItem, error)
	MarkLineItemsNotified(ctx context.Context, ids []int64) (int64, error)
	RecomputeNotificationFlags(ctx context.Context, shopDomain string) (int64, error)
}

// ==================== 实现 ====================

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(ctx context.Context, shopDomain string, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Preload("LineItems.Product").
		Where("shop_domain = ?", shopDomain).
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByShopifyID(ctx context.Context, shopifyOrderID int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("shopify_order_id = ?", shopifyOrderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Order{}).Where("shop_domain = ?", filter.ShopDomain)

	if filter.Name != "" {
		db = db.Where(likeClause(r.db, "name"), containsPattern(filter.Name))
	}
	if filter.Notification != nil {
		db = db.Where("notification = ?", *filter.Notification)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	err := db.
		Preload("LineItems").
		Order("shopify_created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&orders).Error

	return orders, total, err
}

// Upsert 按 shopify_order_id 插入或刷新可变字段，保留内部 ID 与已挂载的明细
func (r *orderRepository) Upsert(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shopify_order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "shopify_created_at", "shopify_updated_at", "updated_at"}),
	}).Create(order).Error
	if err != nil {
		return err
	}

	// 冲突更新时主键回填依赖驱动，统一回查
	var stored model.Order
	if err := r.db.WithContext(ctx).Where("shopify_order_id = ?", order.ShopifyOrderID).First(&stored).Error; err != nil {
		return err
	}
	*order = stored
	return nil
}

// InsertLineItemIfAbsent (order_id, product_id) 不存在时插入，返回是否新插入
func (r *orderRepository) InsertLineItemIfAbsent(ctx context.Context, item *model.OrderLineItem) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(item)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) CountLineItems(ctx context.Context, orderID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderLineItem{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

func (r *orderRepository) ListPendingLineItems(ctx context.Context, shopDomain string) ([]PendingLineItem, error) {
	var rows []PendingLineItem
	err := r.db.WithContext(ctx).
		Table("order_line_items AS li").
		Select(`li.id AS line_item_id, li.order_id, o.shopify_order_id, o.name AS order_name, li.quantity,
			p.id AS product_id, p.shopify_product_id, p.title, p.image_url, p.vendor_name,
			v.id AS vendor_id, v.email AS vendor_email, u.id AS vendor_user_id`).
		Joins("JOIN orders o ON o.id = li.order_id").
		Joins("JOIN products p ON p.id = li.product_id").
		Joins("LEFT JOIN vendors v ON v.id = p.vendor_id").
		Joins("LEFT JOIN users u ON u.email = v.email AND u.role = ?", model.RoleVendor).
		Where("li.shop_domain = ? AND li.notification = ?", shopDomain, false).
		Order("li.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *orderRepository) MarkLineItemsNotified(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&model.OrderLineItem{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"notification": true, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

// RecomputeNotificationFlags 整体重算店铺下所有订单的 notification 标记
func (r *orderRepository) RecomputeNotificationFlags(ctx context.Context, shopDomain string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("shop_domain = ?", shopDomain).
		Update("notification", gorm.Expr(
			"NOT EXISTS (SELECT 1 FROM order_line_items li WHERE li.order_id = orders.id AND li.notification = ?)", false,
		))
	return result.RowsAffected, result.Error
}
