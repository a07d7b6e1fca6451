package repository

import (
	"context"
	"time"

	"shopify_vendor_hub/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 消息仓库接口
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	CreateRecipient(ctx context.Context, rec *model.MessageRecipient) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	ListConversation(ctx context.Context, userA, userB int64, beforeID int64, limit int) ([]model.Message, error)

	// 投递状态
	MarkDelivered(ctx context.Context, messageIDs []int64, at time.Time) (int64, error)
	MarkRead(ctx context.Context, messageID int64, at time.Time) (int64, error)
	SetAccept(ctx context.Context, messageID int64, accept bool, at time.Time) (int64, error)
	ListUndeliveredSince(ctx context.Context, senderID, receiverID int64, since time.Time) ([]int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息仓库
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Omit("Sender", "Receiver", "Recipient").Create(msg).Error
}

func (r *messageRepository) CreateRecipient(ctx context.Context, rec *model.MessageRecipient) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Preload("Recipient").Where("is_deleted = ?", false).First(&msg, id).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListConversation 双方会话，按 ID 倒序分页（beforeID 为 0 时从最新开始）
func (r *messageRepository) ListConversation(ctx context.Context, userA, userB int64, beforeID int64, limit int) ([]model.Message, error) {
	var msgs []model.Message
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	db := r.db.WithContext(ctx).
		Preload("Recipient").
		Where("is_deleted = ?", false).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA)
	if beforeID > 0 {
		db = db.Where("id < ?", beforeID)
	}

	err := db.Order("id DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// MarkDelivered 仅推进处于 sent 状态的记录
func (r *messageRepository) MarkDelivered(ctx context.Context, messageIDs []int64, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&model.MessageRecipient{}).
		Where("message_id IN ? AND delivery_status = ?", messageIDs, model.DeliveryStatusSent).
		Updates(map[string]interface{}{
			"delivery_status": model.DeliveryStatusDelivered,
			"delivered_at":    at,
		})
	return result.RowsAffected, result.Error
}

func (r *messageRepository) MarkRead(ctx context.Context, messageID int64, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.MessageRecipient{}).
		Where("message_id = ?", messageID).
		Updates(map[string]interface{}{
			"delivery_status": model.DeliveryStatusRead,
			"read_at":         at,
		})
	return result.RowsAffected, result.Error
}

func (r *messageRepository) SetAccept(ctx context.Context, messageID int64, accept bool, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.MessageRecipient{}).
		Where("message_id = ?", messageID).
		Updates(map[string]interface{}{
			"is_accept":    accept,
			"responded_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *messageRepository) ListUndeliveredSince(ctx context.Context, senderID, receiverID int64, since time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("messages AS m").
		Joins("JOIN message_recipients mr ON mr.message_id = m.id").
		Where("m.sender_id = ? AND m.receiver_id = ? AND m.created_at >= ?", senderID, receiverID, since).
		Where("mr.delivery_status = ? AND m.is_deleted = ?", model.DeliveryStatusSent, false).
		Pluck("m.id", &ids).Error
	return ids, err
}
