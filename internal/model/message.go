package model

import (
	"time"

	"gorm.io/datatypes"
)

// 消息类型
const (
	MessageTypeText              = "text"
	MessageTypeFile              = "file"
	MessageTypeOrderNotification = "order_notification"
)

// 投递状态
const (
	DeliveryStatusSent      = "sent"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusRead      = "read"
	DeliveryStatusFailed    = "failed"
)

// Message 消息（创建后只允许修改 is_deleted）
type Message struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID    int64  `gorm:"not null;index:idx_message_pair,priority:1" json:"sender_id"`
	ReceiverID  int64  `gorm:"not null;index:idx_message_pair,priority:2;index" json:"receiver_id"`
	Content     string `gorm:"type:text" json:"content"`
	MessageType string `gorm:"size:30;not null;default:text" json:"message_type"`

	// 仅 order_notification 类型携带
	OrderData datatypes.JSON `json:"order_data,omitempty"`

	ParentMessageID *int64    `gorm:"index" json:"parent_message_id"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	IsDeleted       bool      `gorm:"not null;default:false" json:"is_deleted"`

	Sender    *User             `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE;" json:"-"`
	Receiver  *User             `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE;" json:"-"`
	Recipient *MessageRecipient `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE;" json:"recipient,omitempty"`
}

func (Message) TableName() string { return "messages" }

// MessageRecipient 消息投递跟踪（与消息 1:1，同事务创建）
type MessageRecipient struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID int64 `gorm:"not null;uniqueIndex" json:"message_id"`

	// 仅订单通知有意义：nil 待处理 / true 接受 / false 拒绝
	IsAccept       *bool  `json:"is_accept"`
	DeliveryStatus string `gorm:"size:20;not null;default:sent;index" json:"delivery_status"`

	SentAt      time.Time  `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	ReadAt      *time.Time `json:"read_at"`
	RespondedAt *time.Time `json:"responded_at"`
}

func (MessageRecipient) TableName() string { return "message_recipients" }
