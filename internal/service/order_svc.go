package service

import (
	"context"
	"errors"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/repository"

	"gorm.io/gorm"
)

// OrderService 订单查询服务
type OrderService struct {
	orderRepo repository.OrderRepository
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// List 订单列表（租户隔离）
func (s *OrderService) List(ctx context.Context, shopDomain string, req *dto.OrderListReq) ([]model.Order, dto.PageMeta, error) {
	page, limit := req.Normalize()
	orders, total, err := s.orderRepo.List(ctx, repository.OrderFilter{
		ShopDomain:   shopDomain,
		Name:         req.Name,
		Notification: req.Notification,
		Page:         page,
		PageSize:     limit,
	})
	if err != nil {
		return nil, dto.PageMeta{}, persistErr("查询订单列表", err)
	}
	return orders, dto.NewPageMeta(page, limit, total), nil
}

// GetByID 订单详情（含明细与商品）
func (s *OrderService) GetByID(ctx context.Context, shopDomain string, id int64) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, shopDomain, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistErr("查询订单", err)
	}
	return order, nil
}
