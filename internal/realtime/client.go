package realtime

import (
	"context"
	"sync"
	"time"

	"shopify_vendor_hub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// sendBuffer 每个连接的发送队列长度，满则丢弃
const sendBuffer = 64

// Client 单个 WebSocket 连接
// 所有写操作经 send 队列，由唯一的 writeLoop 消费
type Client struct {
	ID   string
	send chan Event

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewClient 创建连接状态，传输层由 Serve 绑定
func NewClient() *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:     uuid.NewString(),
		send:   make(chan Event, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Outbox 待发送事件（测试中直接读取）
func (c *Client) Outbox() <-chan Event {
	return c.send
}

// Send 非阻塞入队，连接已关闭或队列满时返回 false
func (c *Client) Send(ev Event) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		logger.GetLogger().Warn("[Realtime] 发送队列已满，丢弃事件",
			zap.String("conn_id", c.ID), zap.String("type", ev.Type))
		return false
	}
}

// Close 停止写循环
func (c *Client) Close() {
	c.once.Do(c.cancel)
}

// Done 连接结束信号
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Client) writeLoop(conn *websocket.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.send:
			writeCtx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				logger.GetLogger().Debug("[Realtime] 写入失败", zap.String("conn_id", c.ID), zap.Error(err))
				c.Close()
				return
			}
		}
	}
}

func (c *Client) keepAliveLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
			_ = conn.Ping(pingCtx)
			cancel()
		}
	}
}
