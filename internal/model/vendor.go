package model

// Vendor 供应商目录
// (name, shop_domain) 唯一；与用户表通过 email 关联
type Vendor struct {
	BaseModel
	Name        string `gorm:"size:255;not null;uniqueIndex:idx_vendor_name_shop" json:"name"`
	ShopDomain  string `gorm:"size:255;not null;uniqueIndex:idx_vendor_name_shop;index" json:"shop_domain"`
	Email       string `gorm:"size:255;index" json:"email"`
	Phone       string `gorm:"size:50" json:"phone"`
	ContactName string `gorm:"size:255" json:"contact_name"`
}

func (Vendor) TableName() string { return "vendors" }
