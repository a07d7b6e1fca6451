package service

import (
	"context"
	"errors"
	"strings"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/repository"

	"gorm.io/gorm"
)

// VendorService 供应商目录服务
type VendorService struct {
	vendorRepo repository.VendorRepository
}

// NewVendorService 创建供应商服务
func NewVendorService(vendorRepo repository.VendorRepository) *VendorService {
	return &VendorService{vendorRepo: vendorRepo}
}

// List 供应商列表
func (s *VendorService) List(ctx context.Context, shopDomain string, req *dto.VendorListReq) ([]model.Vendor, dto.PageMeta, error) {
	page, limit := req.Normalize()
	vendors, total, err := s.vendorRepo.List(ctx, repository.VendorFilter{
		ShopDomain: shopDomain,
		Keyword:    req.Search,
		Page:       page,
		PageSize:   limit,
	})
	if err != nil {
		return nil, dto.PageMeta{}, persistErr("查询供应商列表", err)
	}
	return vendors, dto.NewPageMeta(page, limit, total), nil
}

// Update 更新供应商联系方式
func (s *VendorService) Update(ctx context.Context, shopDomain string, id int64, req *dto.VendorUpdateReq) (*model.Vendor, error) {
	if _, err := s.vendorRepo.GetByID(ctx, shopDomain, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistErr("查询供应商", err)
	}

	fields := map[string]interface{}{}
	if req.Email != nil {
		fields["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.ContactName != nil {
		fields["contact_name"] = strings.TrimSpace(*req.ContactName)
	}
	if len(fields) > 0 {
		if err := s.vendorRepo.UpdateFields(ctx, id, fields); err != nil {
			return nil, persistErr("更新供应商", err)
		}
	}

	vendor, err := s.vendorRepo.GetByID(ctx, shopDomain, id)
	if err != nil {
		return nil, persistErr("查询供应商", err)
	}
	return vendor, nil
}
