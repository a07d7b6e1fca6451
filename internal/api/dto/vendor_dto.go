package dto

// VendorListReq 供应商列表请求
type VendorListReq struct {
	PageQuery
	Search string `form:"search"`
}

// VendorUpdateReq 更新供应商联系方式
type VendorUpdateReq struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
	ContactName *string `json:"contact_name" binding:"omitempty,max=255"`
}

// VendorAccountReq 为供应商开通登录账号
type VendorAccountReq struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=8,max=100"`
	Name     string `json:"name" binding:"omitempty,max=255"`
}
