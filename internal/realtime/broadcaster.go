package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"shopify_vendor_hub/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broadcaster 频道发布
// 本地实现直接投递；Redis 实现经 Pub/Sub 转发，各实例投递给自己的连接
type Broadcaster interface {
	Publish(ctx context.Context, channel string, ev Event, excludeConn string) error
}

// deliverFunc 投递到本实例频道成员
type deliverFunc func(channel string, ev Event, excludeConn string)

// ==================== 本地实现 ====================

type localBroadcaster struct {
	deliver deliverFunc
}

func (b *localBroadcaster) Publish(_ context.Context, channel string, ev Event, excludeConn string) error {
	b.deliver(channel, ev, excludeConn)
	return nil
}

// ==================== Redis 实现 ====================

// DefaultRedisTopic Pub/Sub 主题
const DefaultRedisTopic = "vendor_hub:realtime"

// wireEvent Redis 上传输的结构
type wireEvent struct {
	Channel string          `json:"channel"`
	Exclude string          `json:"exclude,omitempty"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// RedisBroadcaster 多实例部署时的跨进程广播
type RedisBroadcaster struct {
	client  *redis.Client
	topic   string
	deliver deliverFunc
}

// NewRedisBroadcaster 创建 Redis 广播器，需调用 Run 开始消费
func NewRedisBroadcaster(client *redis.Client, topic string) *RedisBroadcaster {
	if topic == "" {
		topic = DefaultRedisTopic
	}
	return &RedisBroadcaster{client: client, topic: topic}
}

func (b *RedisBroadcaster) bind(deliver deliverFunc) {
	b.deliver = deliver
}

// Publish 发布到 Redis，包括本实例在内的所有订阅者负责投递
func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, ev Event, excludeConn string) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	payload, err := json.Marshal(wireEvent{Channel: channel, Exclude: excludeConn, Type: ev.Type, Data: data})
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	if err := b.client.Publish(ctx, b.topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run 订阅主题直到 ctx 取消
func (b *RedisBroadcaster) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.topic)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	logger.GetLogger().Info("[Realtime] Redis 订阅已启动", zap.String("topic", b.topic))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var we wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &we); err != nil {
				logger.GetLogger().Warn("[Realtime] 无法解析 Redis 消息", zap.Error(err))
				continue
			}
			if b.deliver != nil {
				b.deliver(we.Channel, Event{Type: we.Type, Data: we.Data}, we.Exclude)
			}
		}
	}
}
