package model

// Product 商品（按 Shopify 商品 ID 全局唯一）
type Product struct {
	BaseModel
	ShopifyProductID int64  `gorm:"not null;uniqueIndex" json:"shopify_product_id"`
	Title            string `gorm:"size:500" json:"title"`
	ImageURL         string `gorm:"size:1000" json:"image_url"`

	// 供应商名称冗余存储，供应商被删除时 vendor_id 置空
	VendorName string  `gorm:"size:255;index" json:"vendor_name"`
	VendorID   *int64  `gorm:"index" json:"vendor_id"`
	Vendor     *Vendor `gorm:"foreignKey:VendorID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"vendor,omitempty"`

	ShopDomain string `gorm:"size:255;not null;index" json:"shop_domain"`
}

func (Product) TableName() string { return "products" }
