package shopify

import (
	"time"
)

// ==========================================
// 规范化结构：GraphQL 与 Webhook(REST) 两种来源都转换成这里的形状
// ==========================================

// Session 租户会话（店铺域名 + 离线访问令牌）
type Session struct {
	Shop        string
	AccessToken string
}

// Order 规范化订单
type Order struct {
	ExternalID int64
	Name       string
	CreatedAt  *time.Time
	UpdatedAt  *time.Time
	LineItems  []LineItem
}

// LineItem 规范化订单明细
// ProductID 为 0 表示明细未关联目录商品（自定义商品等）
type LineItem struct {
	ExternalID int64
	Title      string
	VendorName string
	Quantity   int
	ImageURL   string
	ProductID  int64
	VariantID  int64
}

// OrderPage 订单分页结果
type OrderPage struct {
	Orders      []Order
	HasNextPage bool
	EndCursor   string
}

// VendorPage 商品供应商分页结果
type VendorPage struct {
	Vendors     []string
	HasNextPage bool
	EndCursor   string
}

// ShopInfo 店铺信息
type ShopInfo struct {
	Name   string
	Email  string
	Domain string
}

// AccessTokenResp OAuth 换取令牌响应
type AccessTokenResp struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}
