package service

import (
	"context"
	"testing"
	"time"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type messageFixture struct {
	db       *gorm.DB
	svc      *MessageService
	owner    *model.User
	vendor   *model.User
	stranger *model.User
}

func newMessageFixture(t *testing.T) *messageFixture {
	db, uow := setupTestDB(t)
	owner := seedOwner(t, db, testShop)
	_, vendor := seedVendorAccount(t, db, testShop, "Acme", "acme@example.com", "secret")
	seedOwner(t, db, "other.myshopify.com")
	_, stranger := seedVendorAccount(t, db, "other.myshopify.com", "Beta", "beta@example.com", "secret")

	return &messageFixture{db: db, svc: NewMessageService(uow), owner: owner, vendor: vendor, stranger: stranger}
}

func TestMessageService_Send(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.owner, SendInput{ReceiverID: f.vendor.ID, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, model.MessageTypeText, msg.MessageType, "空类型按文本处理")
	require.NotNil(t, msg.Recipient)
	assert.Equal(t, model.DeliveryStatusSent, msg.Recipient.DeliveryStatus)

	reply, err := f.svc.Send(ctx, f.vendor, SendInput{
		ReceiverID:      f.owner.ID,
		Content:         "https://cdn/spec.pdf",
		MessageType:     model.MessageTypeFile,
		ParentMessageID: &msg.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, msg.ID, *reply.ParentMessageID)

	msgs, err := f.svc.ListConversation(ctx, f.owner, f.vendor.ID, &dto.ConversationReq{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, reply.ID, msgs[0].ID, "新消息在前")
}

func TestMessageService_SendRejects(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.owner, SendInput{ReceiverID: f.stranger.ID, Content: "hi"})
	assert.ErrorIs(t, err, ErrForbidden, "不能给其它店铺的供应商发消息")

	_, err = f.svc.Send(ctx, f.owner, SendInput{ReceiverID: f.vendor.ID, Content: "   "})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.svc.Send(ctx, f.owner, SendInput{ReceiverID: f.vendor.ID, Content: "x", MessageType: model.MessageTypeOrderNotification})
	assert.ErrorIs(t, err, ErrInvalidArgument, "订单通知只能由聚合器生成")

	_, err = f.svc.Send(ctx, f.owner, SendInput{ReceiverID: f.owner.ID, Content: "me"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	var count int64
	f.db.Model(&model.Message{}).Count(&count)
	assert.Zero(t, count)
}

func TestMessageService_MarkRead(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.owner, SendInput{ReceiverID: f.vendor.ID, Content: "hello"})
	require.NoError(t, err)

	_, err = f.svc.MarkRead(ctx, f.owner.ID, msg.ID)
	assert.ErrorIs(t, err, ErrForbidden, "发送方不能标记已读")

	_, err = f.svc.MarkRead(ctx, f.vendor.ID, msg.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.MarkRead(ctx, f.vendor.ID, msg.ID)
	require.NoError(t, err)

	var rec model.MessageRecipient
	f.db.Where("message_id = ?", msg.ID).First(&rec)
	assert.Equal(t, model.DeliveryStatusRead, rec.DeliveryStatus)
	assert.NotNil(t, rec.ReadAt)
}

func TestMessageService_MarkRecentDelivered(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	recent, err := f.svc.Send(ctx, f.owner, SendInput{ReceiverID: f.vendor.ID, Content: "recent"})
	require.NoError(t, err)
	// 窗口外的旧消息
	f.db.Model(&model.Message{}).Where("id = ?", recent.ID).Update("created_at", now.Add(-10*time.Minute))
	old, err := f.svc.Send(ctx, f.owner, SendInput{ReceiverID: f.vendor.ID, Content: "old"})
	require.NoError(t, err)
	f.db.Model(&model.Message{}).Where("id = ?", old.ID).Update("created_at", now.Add(-2*time.Hour))

	ids, err := f.svc.MarkRecentDelivered(ctx, f.vendor.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{recent.ID}, ids)

	// 再次进入不会重复推进
	ids, err = f.svc.MarkRecentDelivered(ctx, f.vendor.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMessageService_RespondToOrder(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()

	itemPayload := &model.OrderNotificationItem{SKU: "SKU-77", Title: "Mug", Quantity: 2, ShopDomain: testShop}
	notice, err := model.MessagePayload{Type: model.MessageTypeOrderNotification, Order: itemPayload}.ToMessage(f.owner.ID, f.vendor.ID, nil)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(notice).Error)
	require.NoError(t, f.db.Create(&model.MessageRecipient{MessageID: notice.ID, DeliveryStatus: model.DeliveryStatusSent, SentAt: time.Now()}).Error)

	text, err := f.svc.Send(ctx, f.owner, SendInput{ReceiverID: f.vendor.ID, Content: "plain"})
	require.NoError(t, err)

	_, err = f.svc.RespondToOrder(ctx, f.owner, notice.ID, true)
	assert.ErrorIs(t, err, ErrForbidden, "店主不能响应订单")

	_, err = f.svc.RespondToOrder(ctx, f.vendor, text.ID, true)
	assert.ErrorIs(t, err, ErrInvalidArgument, "普通消息不能响应")

	_, err = f.svc.RespondToOrder(ctx, f.stranger, notice.ID, true)
	assert.ErrorIs(t, err, ErrForbidden, "只有接收方可以响应")

	msg, err := f.svc.RespondToOrder(ctx, f.vendor, notice.ID, false)
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, msg.SenderID)

	var rec model.MessageRecipient
	f.db.Where("message_id = ?", notice.ID).First(&rec)
	require.NotNil(t, rec.IsAccept)
	assert.False(t, *rec.IsAccept)
	assert.NotNil(t, rec.RespondedAt)
}
