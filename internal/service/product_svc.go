package service

import (
	"context"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/repository"
)

// ProductService 商品查询服务
type ProductService struct {
	productRepo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(productRepo repository.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// List 商品列表
func (s *ProductService) List(ctx context.Context, shopDomain string, req *dto.ProductListReq) ([]model.Product, dto.PageMeta, error) {
	page, limit := req.Normalize()
	products, total, err := s.productRepo.List(ctx, repository.ProductFilter{
		ShopDomain: shopDomain,
		Search:     req.Search,
		VendorName: req.VendorName,
		Page:       page,
		PageSize:   limit,
	})
	if err != nil {
		return nil, dto.PageMeta{}, persistErr("查询商品列表", err)
	}
	return products, dto.NewPageMeta(page, limit, total), nil
}
