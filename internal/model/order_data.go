package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// ==================== 订单通知载荷 ====================

// OrderRef 合并条目来源订单
type OrderRef struct {
	OrderID        int64  `json:"order_id"`
	ShopifyOrderID int64  `json:"shopify_order_id"`
	Name           string `json:"name"`
	LineItemID     int64  `json:"line_item_id"`
	Quantity       int    `json:"quantity"`
}

// OrderNotificationItem 订单通知条目
// 同一供应商下相同 SKU 的待通知明细合并为一条，数量求和
type OrderNotificationItem struct {
	SKU              string     `json:"sku"`
	ProductID        int64      `json:"product_id"`
	ShopifyProductID int64      `json:"shopify_product_id"`
	Title            string     `json:"title"`
	ImageURL         string     `json:"image_url"`
	VendorName       string     `json:"vendor_name"`
	ShopDomain       string     `json:"shop_domain"`
	Quantity         int        `json:"quantity"`
	Orders           []OrderRef `json:"orders"`
}

// SyntheticSKU 由 Shopify 商品 ID 生成合成 SKU
func SyntheticSKU(shopifyProductID int64) string {
	return fmt.Sprintf("SKU-%d", shopifyProductID)
}

// LineItemIDs 合并条目包含的明细 ID
func (i *OrderNotificationItem) LineItemIDs() []int64 {
	ids := make([]int64, 0, len(i.Orders))
	for _, o := range i.Orders {
		ids = append(ids, o.LineItemID)
	}
	return ids
}

// Summary 通知文案
func (i *OrderNotificationItem) Summary() string {
	names := make([]string, 0, len(i.Orders))
	for _, o := range i.Orders {
		names = append(names, o.Name)
	}
	return fmt.Sprintf("New order request: %s x%d (%s)", i.Title, i.Quantity, strings.Join(names, ", "))
}

// ==================== 消息载荷（按 message_type 区分） ====================

// MessagePayload 消息体
// Type 决定哪个字段有效：text -> Text，file -> FileURL，order_notification -> Order
type MessagePayload struct {
	Type    string
	Text    string
	FileURL string
	Order   *OrderNotificationItem
}

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrEmptyMessage       = errors.New("message content is empty")
)

// Validate 校验载荷与类型一致
func (p MessagePayload) Validate() error {
	switch p.Type {
	case MessageTypeText:
		if strings.TrimSpace(p.Text) == "" {
			return ErrEmptyMessage
		}
	case MessageTypeFile:
		if strings.TrimSpace(p.FileURL) == "" {
			return ErrEmptyMessage
		}
	case MessageTypeOrderNotification:
		if p.Order == nil {
			return ErrEmptyMessage
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, p.Type)
	}
	return nil
}

// ToMessage 按载荷构造消息行
func (p MessagePayload) ToMessage(senderID, receiverID int64, parentID *int64) (*Message, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	msg := &Message{
		SenderID:        senderID,
		ReceiverID:      receiverID,
		MessageType:     p.Type,
		ParentMessageID: parentID,
	}

	switch p.Type {
	case MessageTypeText:
		msg.Content = p.Text
	case MessageTypeFile:
		msg.Content = p.FileURL
	case MessageTypeOrderNotification:
		data, err := json.Marshal(p.Order)
		if err != nil {
			return nil, fmt.Errorf("序列化订单通知失败: %w", err)
		}
		msg.Content = p.Order.Summary()
		msg.OrderData = datatypes.JSON(data)
	}
	return msg, nil
}

// Payload 从消息行还原载荷
func (m *Message) Payload() (MessagePayload, error) {
	p := MessagePayload{Type: m.MessageType}
	switch m.MessageType {
	case MessageTypeText:
		p.Text = m.Content
	case MessageTypeFile:
		p.FileURL = m.Content
	case MessageTypeOrderNotification:
		var item OrderNotificationItem
		if err := json.Unmarshal(m.OrderData, &item); err != nil {
			return p, fmt.Errorf("解析订单通知失败: %w", err)
		}
		p.Order = &item
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.MessageType)
	}
	return p, nil
}
