package model

import (
	"errors"
	"testing"
)

func sampleItem() *OrderNotificationItem {
	return &OrderNotificationItem{
		SKU:        SyntheticSKU(77),
		Title:      "Mug",
		VendorName: "Acme",
		ShopDomain: "demo.myshopify.com",
		Quantity:   5,
		Orders: []OrderRef{
			{OrderID: 1, Name: "#1001", LineItemID: 10, Quantity: 2},
			{OrderID: 2, Name: "#1002", LineItemID: 11, Quantity: 3},
		},
	}
}

func TestOrderNotificationItem(t *testing.T) {
	item := sampleItem()

	if got := item.SKU; got != "SKU-77" {
		t.Errorf("SyntheticSKU = %s", got)
	}
	ids := item.LineItemIDs()
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 11 {
		t.Errorf("LineItemIDs = %v", ids)
	}
	if got, want := item.Summary(), "New order request: Mug x5 (#1001, #1002)"; got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}
}

func TestMessagePayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload MessagePayload
		wantErr error
	}{
		{"文本", MessagePayload{Type: MessageTypeText, Text: "hi"}, nil},
		{"空文本", MessagePayload{Type: MessageTypeText, Text: "  "}, ErrEmptyMessage},
		{"文件", MessagePayload{Type: MessageTypeFile, FileURL: "https://cdn/a.pdf"}, nil},
		{"空文件", MessagePayload{Type: MessageTypeFile}, ErrEmptyMessage},
		{"订单通知缺少条目", MessagePayload{Type: MessageTypeOrderNotification}, ErrEmptyMessage},
		{"未知类型", MessagePayload{Type: "voice", Text: "x"}, ErrUnknownMessageType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("不应报错: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMessagePayload_OrderNotificationRoundTrip(t *testing.T) {
	parent := int64(9)
	msg, err := MessagePayload{Type: MessageTypeOrderNotification, Order: sampleItem()}.ToMessage(1, 2, &parent)
	if err != nil {
		t.Fatalf("ToMessage 失败: %v", err)
	}
	if msg.SenderID != 1 || msg.ReceiverID != 2 || *msg.ParentMessageID != 9 {
		t.Errorf("收发方或父消息错误: %+v", msg)
	}
	if msg.Content != sampleItem().Summary() {
		t.Errorf("订单通知正文应为摘要: %q", msg.Content)
	}

	p, err := msg.Payload()
	if err != nil {
		t.Fatalf("Payload 失败: %v", err)
	}
	if p.Order == nil || p.Order.Quantity != 5 || len(p.Order.Orders) != 2 {
		t.Errorf("还原的订单条目错误: %+v", p.Order)
	}

	broken := &Message{MessageType: MessageTypeOrderNotification, OrderData: []byte("{")}
	if _, err := broken.Payload(); err == nil {
		t.Error("损坏的 order_data 应报错")
	}
}

func TestUserAccessors(t *testing.T) {
	shop := "demo.myshopify.com"
	owner := &User{Role: RoleStoreOwner, ShopDomain: &shop}
	vendor := &User{Role: RoleVendor}

	if !owner.IsStoreOwner() || owner.IsVendor() || owner.Domain() != shop {
		t.Errorf("店主访问器错误: %+v", owner)
	}
	if !vendor.IsVendor() || vendor.Domain() != "" || vendor.Mode() != "" || vendor.ModeValue() != "" {
		t.Errorf("供应商访问器错误: %+v", vendor)
	}
}
