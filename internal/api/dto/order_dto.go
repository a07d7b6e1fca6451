package dto

// OrderListReq 订单列表请求
type OrderListReq struct {
	PageQuery
	Name         string `form:"name"`
	Notification *bool  `form:"notification"`
}

// ProductListReq 商品列表请求
type ProductListReq struct {
	PageQuery
	Search     string `form:"search"`
	VendorName string `form:"vendor_name"`
}

// SyncLogListReq 同步日志列表请求
type SyncLogListReq struct {
	PageQuery
	SyncType string `form:"sync_type" binding:"omitempty,oneof=initial webhook manual"`
	Status   string `form:"status" binding:"omitempty,oneof=running success error"`
}

// SyncResultResp 手动同步结果
type SyncResultResp struct {
	ShopDomain string `json:"shop_domain"`
	Synced     int    `json:"synced"`
}
