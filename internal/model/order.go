package model

import (
	"time"
)

// ==================== Order 订单主表 ====================

// Order 订单
// notification 仅当全部明细已通知时为 true，每轮通知后整体重算
type Order struct {
	BaseModel
	ShopifyOrderID int64  `gorm:"not null;uniqueIndex" json:"shopify_order_id"`
	Name           string `gorm:"size:100;index" json:"name"`
	Notification   bool   `gorm:"not null;default:false;index" json:"notification"`
	ShopDomain     string `gorm:"size:255;not null;index" json:"shop_domain"`

	ShopifyCreatedAt *time.Time `json:"shopify_created_at"`
	ShopifyUpdatedAt *time.Time `json:"shopify_updated_at"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"line_items,omitempty"`
}

func (Order) TableName() string { return "orders" }

// ==================== OrderLineItem 订单明细 ====================

// OrderLineItem 订单明细
// (order_id, product_id) 唯一，重复同步不会重复插入
type OrderLineItem struct {
	BaseModel
	OrderID      int64    `gorm:"not null;uniqueIndex:idx_line_item_order_product" json:"order_id"`
	ProductID    int64    `gorm:"not null;uniqueIndex:idx_line_item_order_product;index" json:"product_id"`
	Product      *Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
	Quantity     int      `gorm:"not null;default:0" json:"quantity"`
	Notification bool     `gorm:"not null;default:false;index" json:"notification"`
	ShopDomain   string   `gorm:"size:255;not null;index" json:"shop_domain"`
}

func (OrderLineItem) TableName() string { return "order_line_items" }
