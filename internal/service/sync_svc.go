package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify_vendor_hub/internal/metrics"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/repository"
	"shopify_vendor_hub/pkg/logger"
	"shopify_vendor_hub/pkg/shopify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultPageSize 上游分页大小
const DefaultPageSize = 50

// SyncService 订单 / 商品 / 供应商同步引擎
type SyncService struct {
	uow      *repository.UnitOfWork
	tx       repository.Transactor
	api      shopify.API
	pageSize int
	metrics  *metrics.Metrics
}

// NewSyncService 创建同步服务
func NewSyncService(uow *repository.UnitOfWork, api shopify.API, pageSize int, m *metrics.Metrics) *SyncService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SyncService{
		uow:      uow,
		tx:       uow,
		api:      api,
		pageSize: pageSize,
		metrics:  m,
	}
}

// ProductInput 商品 upsert 入参
type ProductInput struct {
	ShopifyProductID int64
	Title            string
	ImageURL         string
	VendorName       string
	VendorID         *int64
	ShopDomain       string
}

// ==================== 全量订单同步 ====================

// SyncAllOrders 分页拉取全部订单，逐单独立事务写入
// 上游失败返回 *UpstreamFetchError 并终止；单个订单持久化失败只回滚该订单
func (s *SyncService) SyncAllOrders(ctx context.Context, sess shopify.Session, syncType string) (int, error) {
	log := logger.GetLogger().With(zap.String("shop", sess.Shop), zap.String("sync_type", syncType))
	start := time.Now()

	entry, err := s.uow.SyncLogs.Open(ctx, sess.Shop, syncType, model.SyncEntityOrders)
	if err != nil {
		return 0, persistErr("创建同步日志", err)
	}

	synced, failed := 0, 0
	cursor := ""
	for {
		page, err := s.api.FetchOrders(ctx, sess, s.pageSize, cursor)
		if err != nil {
			upErr := &UpstreamFetchError{Shop: sess.Shop, Op: "fetch orders", Err: err}
			s.closeLog(ctx, entry.ID, model.SyncStatusError, synced, upErr.Error())
			s.metrics.ObserveSync(syncType, model.SyncStatusError, time.Since(start))
			log.Error("[SyncService] 拉取订单失败，终止同步", zap.Int("synced", synced), zap.Error(err))
			return synced, upErr
		}

		for _, order := range page.Orders {
			if err := s.SyncOrder(ctx, sess.Shop, order); err != nil {
				failed++
				s.metrics.OrderSynced(syncType, model.SyncStatusError)
				log.Warn("[SyncService] 订单写入失败，已回滚该订单",
					zap.Int64("shopify_order_id", order.ExternalID), zap.Error(err))
				continue
			}
			synced++
			s.metrics.OrderSynced(syncType, model.SyncStatusSuccess)
		}

		if !page.HasNextPage || page.EndCursor == "" {
			break
		}
		cursor = page.EndCursor
	}

	errMsg := ""
	if failed > 0 {
		errMsg = fmt.Sprintf("%d 个订单写入失败", failed)
	}
	s.closeLog(ctx, entry.ID, model.SyncStatusSuccess, synced, errMsg)
	s.metrics.ObserveSync(syncType, model.SyncStatusSuccess, time.Since(start))
	log.Info("[SyncService] 订单同步完成", zap.Int("synced", synced), zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))

	return synced, nil
}

// SyncWebhookOrder webhook 推送的单个订单
func (s *SyncService) SyncWebhookOrder(ctx context.Context, shopDomain string, order shopify.Order) error {
	if _, _, err := s.TenantSession(ctx, shopDomain); err != nil {
		return err
	}
	entry, err := s.uow.SyncLogs.Open(ctx, shopDomain, model.SyncTypeWebhook, model.SyncEntityOrders)
	if err != nil {
		return persistErr("创建同步日志", err)
	}

	if err := s.SyncOrder(ctx, shopDomain, order); err != nil {
		s.closeLog(ctx, entry.ID, model.SyncStatusError, 0, err.Error())
		s.metrics.OrderSynced(model.SyncTypeWebhook, model.SyncStatusError)
		return err
	}

	s.closeLog(ctx, entry.ID, model.SyncStatusSuccess, 1, "")
	s.metrics.OrderSynced(model.SyncTypeWebhook, model.SyncStatusSuccess)
	return nil
}

// SyncOrder 在独立事务中同步单个订单
func (s *SyncService) SyncOrder(ctx context.Context, shopDomain string, order shopify.Order) error {
	err := s.tx.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		return s.SyncOrderWithProducts(ctx, tx, order, shopDomain)
	})
	if err == nil {
		return nil
	}

	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return persistErr("提交订单事务", err)
}

// SyncOrderWithProducts 订单 upsert -> 供应商 -> 商品 -> 明细，全部走传入的事务
func (s *SyncService) SyncOrderWithProducts(ctx context.Context, tx *repository.UnitOfWork, order shopify.Order, shopDomain string) error {
	row := &model.Order{
		ShopifyOrderID:   order.ExternalID,
		Name:             order.Name,
		ShopDomain:       shopDomain,
		ShopifyCreatedAt: order.CreatedAt,
		ShopifyUpdatedAt: order.UpdatedAt,
	}
	if err := tx.Orders.Upsert(ctx, row); err != nil {
		return persistErr("upsert 订单", err)
	}

	vendorIDs := make(map[string]int64)
	items := make(map[int64]*model.OrderLineItem)
	var productOrder []int64

	for _, li := range order.LineItems {
		// 未关联目录商品的明细不入库
		if li.ProductID == 0 {
			continue
		}

		var vendorID *int64
		if li.VendorName != "" {
			id, ok := vendorIDs[li.VendorName]
			if !ok {
				vendor, err := s.EnsureVendorExists(ctx, tx, li.VendorName, shopDomain)
				if err != nil {
					return err
				}
				id = vendor.ID
				vendorIDs[li.VendorName] = id
			}
			vendorID = &id
		}

		product, err := s.EnsureProductExists(ctx, tx, ProductInput{
			ShopifyProductID: li.ProductID,
			Title:            li.Title,
			ImageURL:         li.ImageURL,
			VendorName:       li.VendorName,
			VendorID:         vendorID,
			ShopDomain:       shopDomain,
		})
		if err != nil {
			return err
		}

		// 同一订单内同一商品的多个变体合并为一条明细
		if existing, ok := items[product.ID]; ok {
			existing.Quantity += li.Quantity
			continue
		}
		items[product.ID] = &model.OrderLineItem{
			OrderID:    row.ID,
			ProductID:  product.ID,
			Quantity:   li.Quantity,
			ShopDomain: shopDomain,
		}
		productOrder = append(productOrder, product.ID)
	}

	for _, productID := range productOrder {
		if _, err := tx.Orders.InsertLineItemIfAbsent(ctx, items[productID]); err != nil {
			return persistErr("写入订单明细", err)
		}
	}
	return nil
}

// EnsureVendorExists 按 (name, shop_domain) 精确查找，未命中才插入
func (s *SyncService) EnsureVendorExists(ctx context.Context, tx *repository.UnitOfWork, name, shopDomain string) (*model.Vendor, error) {
	vendor, err := tx.Vendors.FindByNameAndShop(ctx, name, shopDomain)
	if err == nil {
		return vendor, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistErr("查询供应商", err)
	}

	vendor = &model.Vendor{Name: name, ShopDomain: shopDomain}
	if _, err := tx.Vendors.CreateIfAbsent(ctx, vendor); err != nil {
		return nil, persistErr("创建供应商", err)
	}
	return vendor, nil
}

// EnsureProductExists 按 shopify_product_id 查找，未命中插入，命中则原地刷新展示字段
func (s *SyncService) EnsureProductExists(ctx context.Context, tx *repository.UnitOfWork, in ProductInput) (*model.Product, error) {
	product, err := tx.Products.FindByShopifyID(ctx, in.ShopifyProductID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistErr("查询商品", err)
	}

	if product == nil {
		product = &model.Product{
			ShopifyProductID: in.ShopifyProductID,
			Title:            in.Title,
			ImageURL:         in.ImageURL,
			VendorName:       in.VendorName,
			VendorID:         in.VendorID,
			ShopDomain:       in.ShopDomain,
		}
		if err := tx.Products.Upsert(ctx, product); err != nil {
			return nil, persistErr("创建商品", err)
		}
		return product, nil
	}

	fields := map[string]interface{}{
		"title":       in.Title,
		"vendor_name": in.VendorName,
		"vendor_id":   in.VendorID,
	}
	// webhook 载荷不带图片，不覆盖已有图片
	if in.ImageURL != "" {
		fields["image_url"] = in.ImageURL
	}
	if err := tx.Products.UpdateFields(ctx, product.ID, fields); err != nil {
		return nil, persistErr("更新商品", err)
	}

	product.Title = in.Title
	product.VendorName = in.VendorName
	product.VendorID = in.VendorID
	if in.ImageURL != "" {
		product.ImageURL = in.ImageURL
	}
	return product, nil
}

// ==================== 租户会话 ====================

// TenantSession 按店铺域名加载店主凭证
func (s *SyncService) TenantSession(ctx context.Context, shopDomain string) (shopify.Session, *model.User, error) {
	owner, err := s.uow.Users.GetStoreOwner(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shopify.Session{}, nil, &TenantNotFoundError{ShopDomain: shopDomain}
		}
		return shopify.Session{}, nil, persistErr("查询店主", err)
	}
	if owner.AccessToken == "" {
		return shopify.Session{}, nil, &TenantNotFoundError{ShopDomain: shopDomain}
	}
	return shopify.Session{Shop: shopDomain, AccessToken: owner.AccessToken}, owner, nil
}

// ManualSync 店主手动触发的全量同步
func (s *SyncService) ManualSync(ctx context.Context, shopDomain string) (int, error) {
	sess, _, err := s.TenantSession(ctx, shopDomain)
	if err != nil {
		return 0, err
	}
	return s.SyncAllOrders(ctx, sess, model.SyncTypeManual)
}

// ListLogs 同步日志分页
func (s *SyncService) ListLogs(ctx context.Context, filter repository.SyncLogFilter) ([]model.SyncLog, int64, error) {
	logs, total, err := s.uow.SyncLogs.List(ctx, filter)
	if err != nil {
		return nil, 0, persistErr("查询同步日志", err)
	}
	return logs, total, nil
}

// ==================== 供应商预取 ====================

// FetchVendorNames 分页拉取商品目录中的全部供应商名称（去重）
func (s *SyncService) FetchVendorNames(ctx context.Context, sess shopify.Session) ([]string, error) {
	seen := make(map[string]struct{})
	var names []string

	cursor := ""
	for {
		page, err := s.api.FetchProductVendors(ctx, sess, s.pageSize, cursor)
		if err != nil {
			return nil, &UpstreamFetchError{Shop: sess.Shop, Op: "fetch product vendors", Err: err}
		}
		for _, name := range page.Vendors {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
		if !page.HasNextPage || page.EndCursor == "" {
			break
		}
		cursor = page.EndCursor
	}
	return names, nil
}

// RegisterVendors 在给定事务中登记供应商，返回新建数量
func (s *SyncService) RegisterVendors(ctx context.Context, tx *repository.UnitOfWork, shopDomain string, names []string) (int, error) {
	created := 0
	for _, name := range names {
		ok, err := tx.Vendors.CreateIfAbsent(ctx, &model.Vendor{Name: name, ShopDomain: shopDomain})
		if err != nil {
			return created, persistErr("登记供应商", err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// ==================== 辅助 ====================

func (s *SyncService) closeLog(ctx context.Context, id int64, status string, synced int, errMsg string) {
	// 调用方 ctx 可能已取消，日志关闭使用独立上下文
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.uow.SyncLogs.Close(closeCtx, id, status, synced, errMsg); err != nil {
		logger.GetLogger().Warn("[SyncService] 关闭同步日志失败", zap.Int64("sync_log_id", id), zap.Error(err))
	}
}
