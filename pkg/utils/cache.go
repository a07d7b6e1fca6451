package utils

import (
	"sync"
	"time"
)

// TTLCache 带过期时间的内存缓存，并发安全
// 用于 OAuth state 等一次性短期数据
type TTLCache struct {
	items sync.Map
	ttl   time.Duration
	now   func() time.Time
}

// cacheItem 内部结构，包含值和过期时间
type cacheItem struct {
	value     string
	expiresAt time.Time
}

// NewTTLCache 创建缓存
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{ttl: ttl, now: time.Now}
}

// Set 设置缓存
func (c *TTLCache) Set(key, value string) {
	c.items.Store(key, cacheItem{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Get 获取缓存并验证是否过期
func (c *TTLCache) Get(key string) (string, bool) {
	val, ok := c.items.Load(key)
	if !ok {
		return "", false
	}

	item := val.(cacheItem)
	if c.now().After(item.expiresAt) {
		c.items.Delete(key) // 懒删除
		return "", false
	}
	return item.value, true
}

// Take 读取后立即删除 (用完即焚)
func (c *TTLCache) Take(key string) (string, bool) {
	val, ok := c.items.LoadAndDelete(key)
	if !ok {
		return "", false
	}
	item := val.(cacheItem)
	if c.now().After(item.expiresAt) {
		return "", false
	}
	return item.value, true
}
