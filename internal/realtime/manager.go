package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"shopify_vendor_hub/internal/metrics"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/service"
	"shopify_vendor_hub/pkg/logger"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// readLimit 单条入站消息上限
const readLimit = 64 << 10

// TokenVerifier 校验会话令牌，返回用户 ID
type TokenVerifier func(token string) (int64, error)

// UserDirectory 用户查询
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	Touch(ctx context.Context, id int64) error
	Counterparts(ctx context.Context, user *model.User) ([]int64, error)
}

// MessageStore 消息持久化
type MessageStore interface {
	Send(ctx context.Context, sender *model.User, in service.SendInput) (*model.Message, error)
	MarkDelivered(ctx context.Context, messageIDs []int64) (int64, error)
	MarkRecentDelivered(ctx context.Context, viewerID, otherID int64) ([]int64, error)
	MarkRead(ctx context.Context, userID, messageID int64) (*model.Message, error)
	RespondToOrder(ctx context.Context, user *model.User, messageID int64, accept bool) (*model.Message, error)
}

// Options 可选依赖
type Options struct {
	Registry    Registry
	Broadcaster Broadcaster
	Metrics     *metrics.Metrics
}

// Manager 实时通道：连接索引、频道成员与事件分发
type Manager struct {
	registry    Registry
	rooms       *roomTable
	broadcaster Broadcaster
	metrics     *metrics.Metrics

	verify    TokenVerifier
	directory UserDirectory
	messages  MessageStore
	now       func() time.Time

	mu       sync.RWMutex
	clients  map[string]*Client
	sessions map[string]*model.User // connID -> 已认证用户
}

// NewManager 创建实时通道管理器
func NewManager(verify TokenVerifier, directory UserDirectory, messages MessageStore, opts Options) *Manager {
	m := &Manager{
		registry:  opts.Registry,
		rooms:     newRoomTable(),
		metrics:   opts.Metrics,
		verify:    verify,
		directory: directory,
		messages:  messages,
		now:       time.Now,
		clients:   make(map[string]*Client),
		sessions:  make(map[string]*model.User),
	}
	if m.registry == nil {
		m.registry = NewMemoryRegistry()
	}

	switch b := opts.Broadcaster.(type) {
	case nil:
		m.broadcaster = &localBroadcaster{deliver: m.deliverLocal}
	case *RedisBroadcaster:
		b.bind(m.deliverLocal)
		m.broadcaster = b
	default:
		m.broadcaster = b
	}
	return m
}

// ==================== 连接生命周期 ====================

// Serve 接管已升级的连接，阻塞到连接关闭
func (m *Manager) Serve(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(readLimit)

	c := NewClient()
	m.Attach(c)
	go c.writeLoop(conn)
	go c.keepAliveLoop(conn)

	defer func() {
		m.Disconnect(context.WithoutCancel(ctx), c)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			m.emitError(c, "", "无法解析的消息")
			continue
		}
		m.HandleEvent(ctx, c, env)
	}
}

// Attach 登记未认证连接
func (m *Manager) Attach(c *Client) {
	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()
	m.metrics.ConnectionOpened()
}

// Disconnect 移除索引、刷新活跃时间并通知联系人下线
func (m *Manager) Disconnect(ctx context.Context, c *Client) {
	m.mu.Lock()
	user := m.sessions[c.ID]
	delete(m.sessions, c.ID)
	delete(m.clients, c.ID)
	m.mu.Unlock()

	m.rooms.leaveAll(c.ID)
	m.registry.Unregister(c.ID)
	c.Close()
	m.metrics.ConnectionClosed()

	if user == nil {
		return
	}
	if err := m.directory.Touch(ctx, user.ID); err != nil {
		logger.GetLogger().Warn("[Realtime] 更新活跃时间失败", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	m.releaseUser(ctx, user, c.ID)
}

// releaseUser 连接不再代表该用户
// 本实例上仍有该用户的其他连接时，用户索引改指向它且不广播下线；否则通知联系人下线
func (m *Manager) releaseUser(ctx context.Context, user *model.User, connID string) {
	if other, ok := m.otherConnection(user.ID, connID); ok {
		if cur, online := m.registry.LookupByUser(user.ID); !online || cur == connID {
			m.registry.Register(other, user.ID)
		}
		return
	}
	m.notifyCounterparts(ctx, user, Event{
		Type: EventUserOffline,
		Data: PresencePayload{UserID: user.ID, At: m.now()},
	})
}

// ==================== 事件分发 ====================

// HandleEvent 处理单条入站事件，错误以事件形式返回，不关闭连接
func (m *Manager) HandleEvent(ctx context.Context, c *Client, env Envelope) {
	m.metrics.RealtimeEvent(env.Type)

	if env.Type == EventAuthenticate {
		m.handleAuthenticate(ctx, c, env.Data)
		return
	}

	user := m.sessionUser(c.ID)
	if user == nil {
		m.emitError(c, env.Type, "未认证")
		return
	}

	switch env.Type {
	case EventJoinConversation:
		m.handleJoin(ctx, c, user, env.Data)
	case EventLeaveConversation:
		m.handleLeave(c, user, env.Data)
	case EventSendMessage:
		m.handleSend(ctx, c, user, env.Data)
	case EventMarkMessageRead:
		m.handleRead(ctx, c, user, env.Data)
	case EventOrderResponse:
		m.handleOrderResponse(ctx, c, user, env.Data)
	case EventTypingStart, EventTypingStop:
		m.handleTyping(ctx, c, user, env.Type, env.Data)
	default:
		m.emitError(c, env.Type, "未知事件类型")
	}
}

func (m *Manager) handleAuthenticate(ctx context.Context, c *Client, raw json.RawMessage) {
	var d authenticateData
	if err := json.Unmarshal(raw, &d); err != nil || d.Token == "" {
		c.Send(Event{Type: EventAuthError, Data: ErrorPayload{Message: "缺少 token"}})
		return
	}
	userID, err := m.verify(d.Token)
	if err != nil {
		c.Send(Event{Type: EventAuthError, Data: ErrorPayload{Message: "Token 无效或已过期"}})
		return
	}
	user, err := m.directory.GetUser(ctx, userID)
	if err != nil {
		c.Send(Event{Type: EventAuthError, Data: ErrorPayload{Message: "用户不存在"}})
		return
	}

	// 重新认证覆盖旧绑定；换成其他用户时旧身份加入的频道全部退出
	m.mu.Lock()
	prev := m.sessions[c.ID]
	m.sessions[c.ID] = user
	m.mu.Unlock()
	if prev != nil && prev.ID != user.ID {
		m.rooms.leaveAll(c.ID)
		m.registry.Unregister(c.ID)
		m.releaseUser(ctx, prev, c.ID)
	}

	m.registry.Register(c.ID, user.ID)
	m.rooms.join(UserChannel(user.ID), c.ID)

	if err := m.directory.Touch(ctx, user.ID); err != nil {
		logger.GetLogger().Warn("[Realtime] 更新活跃时间失败", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	c.Send(Event{Type: EventAuthenticated, Data: AuthenticatedPayload{
		UserID:     user.ID,
		Role:       user.Role,
		ShopDomain: user.Domain(),
	}})
	m.notifyCounterparts(ctx, user, Event{
		Type: EventUserOnline,
		Data: PresencePayload{UserID: user.ID, At: m.now()},
	})
}

func (m *Manager) handleJoin(ctx context.Context, c *Client, user *model.User, raw json.RawMessage) {
	var d conversationData
	if err := json.Unmarshal(raw, &d); err != nil || d.OtherUserID <= 0 {
		m.emitError(c, EventJoinConversation, "缺少 other_user_id")
		return
	}
	channel := ConversationChannel(user.ID, d.OtherUserID)
	m.rooms.join(channel, c.ID)

	ids, err := m.messages.MarkRecentDelivered(ctx, user.ID, d.OtherUserID)
	if err != nil {
		m.emitServiceError(c, EventJoinConversation, err)
		return
	}
	if len(ids) > 0 {
		m.publish(ctx, channel, Event{Type: EventMessagesDelivered, Data: BatchDeliveredPayload{
			MessageIDs:  ids,
			ReceiverID:  user.ID,
			DeliveredAt: m.now(),
		}}, "")
	}
}

func (m *Manager) handleLeave(c *Client, user *model.User, raw json.RawMessage) {
	var d conversationData
	if err := json.Unmarshal(raw, &d); err != nil || d.OtherUserID <= 0 {
		m.emitError(c, EventLeaveConversation, "缺少 other_user_id")
		return
	}
	m.rooms.leave(ConversationChannel(user.ID, d.OtherUserID), c.ID)
}

func (m *Manager) handleSend(ctx context.Context, c *Client, user *model.User, raw json.RawMessage) {
	var d sendMessageData
	if err := json.Unmarshal(raw, &d); err != nil {
		m.emitError(c, EventSendMessage, "消息格式错误")
		return
	}
	msg, err := m.messages.Send(ctx, user, service.SendInput{
		ReceiverID:      d.ReceiverID,
		Content:         d.Content,
		MessageType:     d.MessageType,
		ParentMessageID: d.ParentMessageID,
	})
	if err != nil {
		m.emitServiceError(c, EventSendMessage, err)
		return
	}

	// 发送方未加入会话频道时直接回送
	if !m.rooms.has(ConversationChannel(msg.SenderID, msg.ReceiverID), c.ID) {
		c.Send(Event{Type: EventNewMessage, Data: msg})
	}
	m.deliverMessage(ctx, msg)
}

func (m *Manager) handleRead(ctx context.Context, c *Client, user *model.User, raw json.RawMessage) {
	var d messageRefData
	if err := json.Unmarshal(raw, &d); err != nil || d.MessageID <= 0 {
		m.emitError(c, EventMarkMessageRead, "缺少 message_id")
		return
	}
	msg, err := m.messages.MarkRead(ctx, user.ID, d.MessageID)
	if err != nil {
		m.emitServiceError(c, EventMarkMessageRead, err)
		return
	}
	m.publish(ctx, ConversationChannel(msg.SenderID, msg.ReceiverID), Event{
		Type: EventMessageRead,
		Data: ReadPayload{MessageID: msg.ID, ReaderID: user.ID, ReadAt: m.now()},
	}, "")
}

func (m *Manager) handleOrderResponse(ctx context.Context, c *Client, user *model.User, raw json.RawMessage) {
	if !user.IsVendor() {
		m.emitError(c, EventOrderResponse, "仅供应商可以响应订单")
		return
	}
	var d orderResponseData
	if err := json.Unmarshal(raw, &d); err != nil || d.MessageID <= 0 || d.IsAccept == nil {
		m.emitError(c, EventOrderResponse, "缺少 message_id 或 is_accept")
		return
	}
	msg, err := m.messages.RespondToOrder(ctx, user, d.MessageID, *d.IsAccept)
	if err != nil {
		m.emitServiceError(c, EventOrderResponse, err)
		return
	}

	payload := OrderResponsePayload{
		MessageID:   msg.ID,
		VendorID:    user.ID,
		IsAccept:    *d.IsAccept,
		RespondedAt: m.now(),
	}
	m.publish(ctx, ConversationChannel(msg.SenderID, msg.ReceiverID), Event{Type: EventOrderResponse, Data: payload}, "")
	m.publish(ctx, UserChannel(msg.SenderID), Event{Type: EventOrderResponseNotification, Data: payload}, "")
}

func (m *Manager) handleTyping(ctx context.Context, c *Client, user *model.User, eventType string, raw json.RawMessage) {
	var d typingData
	if err := json.Unmarshal(raw, &d); err != nil || d.ReceiverID <= 0 {
		m.emitError(c, eventType, "缺少 receiver_id")
		return
	}
	m.publish(ctx, ConversationChannel(user.ID, d.ReceiverID), Event{
		Type: eventType,
		Data: TypingPayload{UserID: user.ID},
	}, c.ID)
}

// ==================== 推送 ====================

// PushOrderNotification 聚合器写入订单通知后推送给供应商
func (m *Manager) PushOrderNotification(ctx context.Context, msg *model.Message) error {
	m.deliverMessage(ctx, msg)
	return nil
}

// deliverMessage 会话频道 new_message；接收方在线时私有频道通知并立即标记送达
func (m *Manager) deliverMessage(ctx context.Context, msg *model.Message) {
	m.publish(ctx, ConversationChannel(msg.SenderID, msg.ReceiverID), Event{Type: EventNewMessage, Data: msg}, "")

	if _, online := m.registry.LookupByUser(msg.ReceiverID); !online {
		return
	}
	m.publish(ctx, UserChannel(msg.ReceiverID), Event{Type: EventMessageNotification, Data: msg}, "")

	n, err := m.messages.MarkDelivered(ctx, []int64{msg.ID})
	if err != nil {
		logger.GetLogger().Warn("[Realtime] 标记送达失败", zap.Int64("message_id", msg.ID), zap.Error(err))
		return
	}
	if n > 0 {
		m.publish(ctx, UserChannel(msg.SenderID), Event{
			Type: EventMessageDelivered,
			Data: DeliveredPayload{MessageID: msg.ID, DeliveredAt: m.now()},
		}, "")
	}
}

func (m *Manager) notifyCounterparts(ctx context.Context, user *model.User, ev Event) {
	ids, err := m.directory.Counterparts(ctx, user)
	if err != nil {
		logger.GetLogger().Warn("[Realtime] 查询联系人失败", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	for _, id := range ids {
		m.publish(ctx, UserChannel(id), ev, "")
	}
}

func (m *Manager) publish(ctx context.Context, channel string, ev Event, excludeConn string) {
	if err := m.broadcaster.Publish(ctx, channel, ev, excludeConn); err != nil {
		logger.GetLogger().Warn("[Realtime] 发布失败",
			zap.String("channel", channel), zap.String("type", ev.Type), zap.Error(err))
	}
}

// deliverLocal 投递给本实例的频道成员
func (m *Manager) deliverLocal(channel string, ev Event, excludeConn string) {
	members := m.rooms.snapshot(channel)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, connID := range members {
		if connID == excludeConn {
			continue
		}
		if c, ok := m.clients[connID]; ok {
			c.Send(ev)
		}
	}
}

// ==================== 辅助 ====================

func (m *Manager) sessionUser(connID string) *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[connID]
}

// otherConnection 同一用户在本实例上的其他已认证连接
func (m *Manager) otherConnection(userID int64, exclude string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for connID, u := range m.sessions {
		if connID != exclude && u.ID == userID {
			return connID, true
		}
	}
	return "", false
}

func (m *Manager) emitError(c *Client, event, msg string) {
	c.Send(Event{Type: EventError, Data: ErrorPayload{Event: event, Message: msg}})
}

func (m *Manager) emitServiceError(c *Client, event string, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		m.emitError(c, event, "无权限")
	case errors.Is(err, service.ErrNotFound):
		m.emitError(c, event, "消息不存在")
	case errors.Is(err, service.ErrInvalidArgument):
		m.emitError(c, event, err.Error())
	default:
		logger.GetLogger().Error("[Realtime] 事件处理失败", zap.String("event", event), zap.Error(err))
		m.emitError(c, event, "服务器内部错误")
	}
}
