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

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NoPendingMessage 没有待通知明细时的返回文案
const NoPendingMessage = "No pending notifications"

// Notifier 实时推送，失败不影响已持久化的消息
type Notifier interface {
	PushOrderNotification(ctx context.Context, msg *model.Message) error
}

// NotifiedEntry 单条合并通知的处理结果
type NotifiedEntry struct {
	VendorUserID int64   `json:"vendor_user_id,omitempty"`
	VendorName   string  `json:"vendor_name"`
	SKU          string  `json:"sku,omitempty"`
	Quantity     int     `json:"quantity"`
	MessageID    int64   `json:"message_id,omitempty"`
	LineItemIDs  []int64 `json:"line_item_ids"`
	Error        string  `json:"error,omitempty"`
}

// NotifyResult 一轮通知的结果
type NotifyResult struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Notified []NotifiedEntry `json:"notified"`
	Error    string          `json:"error,omitempty"`
}

// vendorGroup 同一供应商账号下按 SKU 合并后的条目
type vendorGroup struct {
	userID int64
	items  []*model.OrderNotificationItem
	bySKU  map[string]*model.OrderNotificationItem
}

// NotifyService 通知聚合
type NotifyService struct {
	uow      *repository.UnitOfWork
	tx       repository.Transactor
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewNotifyService 创建通知服务
func NewNotifyService(uow *repository.UnitOfWork, notifier Notifier, m *metrics.Metrics) *NotifyService {
	return &NotifyService{
		uow:      uow,
		tx:       uow,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// SetNotifier 注入实时推送（实时通道依赖本服务，构造后再回填）
func (s *NotifyService) SetNotifier(n Notifier) {
	s.notifier = n
}

// TriggerNotification 扫描店铺待通知明细，按供应商分组、按 SKU 合并后逐条发送
func (s *NotifyService) TriggerNotification(ctx context.Context, shopDomain string) (*NotifyResult, error) {
	log := logger.GetLogger().With(zap.String("shop", shopDomain))

	owner, err := s.uow.Users.GetStoreOwner(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tnf := &TenantNotFoundError{ShopDomain: shopDomain}
			return &NotifyResult{Success: false, Error: tnf.Error()}, tnf
		}
		return nil, persistErr("查询店主", err)
	}

	pending, err := s.uow.Orders.ListPendingLineItems(ctx, shopDomain)
	if err != nil {
		return nil, persistErr("查询待通知明细", err)
	}

	if len(pending) == 0 {
		if err := s.uow.Users.UpdateLastNotifiedAt(ctx, owner.ID, s.now()); err != nil {
			return nil, persistErr("更新通知时间", err)
		}
		log.Debug("[NotifyService] 无待通知明细")
		return &NotifyResult{Success: true, Message: NoPendingMessage, Notified: []NotifiedEntry{}}, nil
	}

	groups, unlinked := groupPending(shopDomain, pending)
	result := &NotifyResult{Success: true, Notified: make([]NotifiedEntry, 0, len(pending))}

	// 没有关联账号的供应商：保留待通知状态，作为错误条目返回
	for _, entry := range unlinked {
		log.Warn("[NotifyService] 供应商没有对应的用户账号，跳过通知",
			zap.String("vendor", entry.VendorName), zap.Int("line_items", len(entry.LineItemIDs)))
		s.metrics.Notification("skipped")
		result.Notified = append(result.Notified, entry)
	}

	sent := 0
	for _, group := range groups {
		var consumed []int64

		for _, item := range group.items {
			entry := NotifiedEntry{
				VendorUserID: group.userID,
				VendorName:   item.VendorName,
				SKU:          item.SKU,
				Quantity:     item.Quantity,
				LineItemIDs:  item.LineItemIDs(),
			}

			msg, err := s.persistNotification(ctx, owner.ID, group.userID, item)
			if err != nil {
				entry.Error = err.Error()
				s.metrics.Notification("failed")
				log.Error("[NotifyService] 写入通知消息失败",
					zap.Int64("vendor_user_id", group.userID), zap.String("sku", item.SKU), zap.Error(err))
				result.Notified = append(result.Notified, entry)
				continue
			}

			entry.MessageID = msg.ID
			consumed = append(consumed, entry.LineItemIDs...)
			sent++
			s.metrics.Notification("sent")

			if s.notifier != nil {
				if err := s.notifier.PushOrderNotification(ctx, msg); err != nil {
					log.Warn("[NotifyService] 实时推送失败，消息已持久化",
						zap.Int64("message_id", msg.ID), zap.Error(err))
				}
			}
			result.Notified = append(result.Notified, entry)
		}

		if _, err := s.uow.Orders.MarkLineItemsNotified(ctx, consumed); err != nil {
			return nil, persistErr("更新明细通知标记", err)
		}
	}

	if _, err := s.uow.Orders.RecomputeNotificationFlags(ctx, shopDomain); err != nil {
		return nil, persistErr("重算订单通知标记", err)
	}
	if err := s.uow.Users.UpdateLastNotifiedAt(ctx, owner.ID, s.now()); err != nil {
		return nil, persistErr("更新通知时间", err)
	}

	result.Message = fmt.Sprintf("Sent %d notifications", sent)
	log.Info("[NotifyService] 通知完成", zap.Int("sent", sent), zap.Int("entries", len(result.Notified)))
	return result, nil
}

// persistNotification 消息与投递记录在同一事务中写入
func (s *NotifyService) persistNotification(ctx context.Context, ownerID, vendorUserID int64, item *model.OrderNotificationItem) (*model.Message, error) {
	payload := model.MessagePayload{Type: model.MessageTypeOrderNotification, Order: item}
	msg, err := payload.ToMessage(ownerID, vendorUserID, nil)
	if err != nil {
		return nil, err
	}

	err = s.tx.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		if err := tx.Messages.Create(ctx, msg); err != nil {
			return persistErr("写入消息", err)
		}
		rec := &model.MessageRecipient{
			MessageID:      msg.ID,
			DeliveryStatus: model.DeliveryStatusSent,
			SentAt:         s.now(),
		}
		if err := tx.Messages.CreateRecipient(ctx, rec); err != nil {
			return persistErr("写入投递记录", err)
		}
		msg.Recipient = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// groupPending 按供应商账号分组并按 SKU 合并；无账号的按供应商名汇总为错误条目
func groupPending(shopDomain string, rows []repository.PendingLineItem) ([]*vendorGroup, []NotifiedEntry) {
	var groups []*vendorGroup
	byUser := make(map[int64]*vendorGroup)

	var unlinked []NotifiedEntry
	unlinkedIdx := make(map[string]int)

	for _, row := range rows {
		if row.VendorUserID == nil {
			name := row.VendorName
			idx, ok := unlinkedIdx[name]
			if !ok {
				reason := "vendor_without_user: 供应商没有对应的用户账号"
				if row.VendorID == nil {
					reason = "vendor_without_user: 商品未关联供应商"
				}
				unlinked = append(unlinked, NotifiedEntry{VendorName: name, Error: reason})
				idx = len(unlinked) - 1
				unlinkedIdx[name] = idx
			}
			unlinked[idx].Quantity += row.Quantity
			unlinked[idx].LineItemIDs = append(unlinked[idx].LineItemIDs, row.LineItemID)
			continue
		}

		userID := *row.VendorUserID
		group, ok := byUser[userID]
		if !ok {
			group = &vendorGroup{userID: userID, bySKU: make(map[string]*model.OrderNotificationItem)}
			byUser[userID] = group
			groups = append(groups, group)
		}

		sku := model.SyntheticSKU(row.ShopifyProductID)
		item, ok := group.bySKU[sku]
		if !ok {
			item = &model.OrderNotificationItem{
				SKU:              sku,
				ProductID:        row.ProductID,
				ShopifyProductID: row.ShopifyProductID,
				Title:            row.Title,
				ImageURL:         row.ImageURL,
				VendorName:       row.VendorName,
				ShopDomain:       shopDomain,
			}
			group.bySKU[sku] = item
			group.items = append(group.items, item)
		}
		item.Quantity += row.Quantity
		item.Orders = append(item.Orders, model.OrderRef{
			OrderID:        row.OrderID,
			ShopifyOrderID: row.ShopifyOrderID,
			Name:           row.OrderName,
			LineItemID:     row.LineItemID,
			Quantity:       row.Quantity,
		})
	}
	return groups, unlinked
}
