package service

import (
	"context"
	"errors"
	"time"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/repository"

	"gorm.io/gorm"
)

// DeliveredWindow 进入会话时回补的已送达时间窗口
const DeliveredWindow = time.Hour

// SendInput 发送消息入参
type SendInput struct {
	ReceiverID      int64
	Content         string
	MessageType     string
	ParentMessageID *int64
}

// MessageService 站内消息
type MessageService struct {
	uow *repository.UnitOfWork
	tx  repository.Transactor
	now func() time.Time
}

// NewMessageService 创建消息服务
func NewMessageService(uow *repository.UnitOfWork) *MessageService {
	return &MessageService{uow: uow, tx: uow, now: time.Now}
}

// ==================== 发送 ====================

// Send 消息与投递记录同事务写入
// 客户端只能发送 text / file，订单通知由聚合器生成
func (s *MessageService) Send(ctx context.Context, sender *model.User, in SendInput) (*model.Message, error) {
	payload := model.MessagePayload{Type: in.MessageType}
	switch in.MessageType {
	case "", model.MessageTypeText:
		payload.Type = model.MessageTypeText
		payload.Text = in.Content
	case model.MessageTypeFile:
		payload.FileURL = in.Content
	default:
		return nil, invalidArg("不支持的消息类型: %s", in.MessageType)
	}
	if err := payload.Validate(); err != nil {
		return nil, invalidArg("%v", err)
	}
	if err := s.checkCounterpart(ctx, sender, in.ReceiverID); err != nil {
		return nil, err
	}

	msg, err := payload.ToMessage(sender.ID, in.ReceiverID, in.ParentMessageID)
	if err != nil {
		return nil, invalidArg("%v", err)
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

// ==================== 投递状态 ====================

// MarkDelivered 推进为已送达，返回实际更新条数
func (s *MessageService) MarkDelivered(ctx context.Context, messageIDs []int64) (int64, error) {
	n, err := s.uow.Messages.MarkDelivered(ctx, messageIDs, s.now())
	if err != nil {
		return 0, persistErr("标记已送达", err)
	}
	return n, nil
}

// MarkRecentDelivered 对方在时间窗口内发给 viewer 且仍为 sent 的消息标记已送达
func (s *MessageService) MarkRecentDelivered(ctx context.Context, viewerID, otherID int64) ([]int64, error) {
	ids, err := s.uow.Messages.ListUndeliveredSince(ctx, otherID, viewerID, s.now().Add(-DeliveredWindow))
	if err != nil {
		return nil, persistErr("查询未送达消息", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := s.MarkDelivered(ctx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// MarkRead 只有接收方可以标记已读
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID int64) (*model.Message, error) {
	msg, err := s.receivedMessage(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.uow.Messages.MarkRead(ctx, messageID, s.now()); err != nil {
		return nil, persistErr("标记已读", err)
	}
	return msg, nil
}

// RespondToOrder 供应商接受 / 拒绝订单通知
func (s *MessageService) RespondToOrder(ctx context.Context, user *model.User, messageID int64, accept bool) (*model.Message, error) {
	if !user.IsVendor() {
		return nil, ErrForbidden
	}
	msg, err := s.receivedMessage(ctx, user.ID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.MessageType != model.MessageTypeOrderNotification {
		return nil, invalidArg("消息 %d 不是订单通知", messageID)
	}
	if _, err := s.uow.Messages.SetAccept(ctx, messageID, accept, s.now()); err != nil {
		return nil, persistErr("记录订单响应", err)
	}
	return msg, nil
}

// ==================== 查询 ====================

// ListConversation 会话历史（新 -> 旧）
func (s *MessageService) ListConversation(ctx context.Context, user *model.User, otherID int64, req *dto.ConversationReq) ([]model.Message, error) {
	if err := s.checkCounterpart(ctx, user, otherID); err != nil {
		return nil, err
	}
	msgs, err := s.uow.Messages.ListConversation(ctx, user.ID, otherID, req.BeforeID, req.Limit)
	if err != nil {
		return nil, persistErr("查询会话", err)
	}
	return msgs, nil
}

// ==================== 辅助 ====================

func (s *MessageService) receivedMessage(ctx context.Context, userID, messageID int64) (*model.Message, error) {
	msg, err := s.uow.Messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistErr("查询消息", err)
	}
	if msg.ReceiverID != userID {
		return nil, ErrForbidden
	}
	return msg, nil
}

// checkCounterpart 消息只在店主与其供应商之间流转
func (s *MessageService) checkCounterpart(ctx context.Context, user *model.User, otherID int64) error {
	if otherID <= 0 || otherID == user.ID {
		return invalidArg("无效的接收方: %d", otherID)
	}
	users, err := s.uow.Users.ListCounterparts(ctx, user)
	if err != nil {
		return persistErr("查询联系人", err)
	}
	for _, u := range users {
		if u.ID == otherID {
			return nil
		}
	}
	return ErrForbidden
}
