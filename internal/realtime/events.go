package realtime

import (
	"encoding/json"
	"time"
)

// 入站事件
const (
	EventAuthenticate      = "authenticate"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventMarkMessageRead   = "mark_message_read"
	EventOrderResponse     = "order_response"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
)

// 出站事件（order_response / typing_* 与入站同名）
const (
	EventAuthenticated             = "authenticated"
	EventAuthError                 = "auth_error"
	EventUserOnline                = "user_online"
	EventUserOffline               = "user_offline"
	EventNewMessage                = "new_message"
	EventMessageNotification       = "message_notification"
	EventMessageDelivered          = "message_delivered"
	EventMessagesDelivered         = "messages_delivered"
	EventMessageRead               = "message_read"
	EventOrderResponseNotification = "order_response_notification"
	EventError                     = "error"
)

// Envelope 入站消息 {"type": ..., "data": {...}}
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event 出站消息
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ==================== 入站载荷 ====================

type authenticateData struct {
	Token string `json:"token"`
}

type conversationData struct {
	OtherUserID int64 `json:"other_user_id"`
}

type sendMessageData struct {
	ReceiverID      int64  `json:"receiver_id"`
	Content         string `json:"content"`
	MessageType     string `json:"message_type"`
	ParentMessageID *int64 `json:"parent_message_id"`
}

type messageRefData struct {
	MessageID int64 `json:"message_id"`
}

type orderResponseData struct {
	MessageID int64 `json:"message_id"`
	IsAccept  *bool `json:"is_accept"`
}

type typingData struct {
	ReceiverID int64 `json:"receiver_id"`
}

// ==================== 出站载荷 ====================

// AuthenticatedPayload 认证成功
type AuthenticatedPayload struct {
	UserID     int64  `json:"user_id"`
	Role       string `json:"role"`
	ShopDomain string `json:"shop_domain,omitempty"`
}

// PresencePayload 上线 / 下线
type PresencePayload struct {
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

// DeliveredPayload 单条送达
type DeliveredPayload struct {
	MessageID   int64     `json:"message_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// BatchDeliveredPayload 批量送达
type BatchDeliveredPayload struct {
	MessageIDs  []int64   `json:"message_ids"`
	ReceiverID  int64     `json:"receiver_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// ReadPayload 已读回执
type ReadPayload struct {
	MessageID int64     `json:"message_id"`
	ReaderID  int64     `json:"reader_id"`
	ReadAt    time.Time `json:"read_at"`
}

// OrderResponsePayload 订单接受 / 拒绝
type OrderResponsePayload struct {
	MessageID   int64     `json:"message_id"`
	VendorID    int64     `json:"vendor_id"`
	IsAccept    bool      `json:"is_accept"`
	RespondedAt time.Time `json:"responded_at"`
}

// TypingPayload 输入状态
type TypingPayload struct {
	UserID int64 `json:"user_id"`
}

// ErrorPayload 错误
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
