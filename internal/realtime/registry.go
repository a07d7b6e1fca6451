package realtime

import "sync"

// Registry 连接与用户的双向索引
// 连接 -> 用户：每个连接只对应最近一次认证的用户
// 用户 -> 连接：只保留最新的连接，用于定向推送
type Registry interface {
	Register(connID string, userID int64)
	// Unregister 移除连接，返回它曾绑定的用户
	Unregister(connID string) (int64, bool)
	LookupByUser(userID int64) (string, bool)
	LookupByConnection(connID string) (int64, bool)
}

type memoryRegistry struct {
	mu     sync.RWMutex
	byConn map[string]int64
	byUser map[int64]string
}

// NewMemoryRegistry 进程内索引，每个 Manager 一份
func NewMemoryRegistry() Registry {
	return &memoryRegistry{
		byConn: make(map[string]int64),
		byUser: make(map[int64]string),
	}
}

func (r *memoryRegistry) Register(connID string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 同一连接重新认证为其他用户，旧用户索引若指向本连接则清除
	if prev, ok := r.byConn[connID]; ok && prev != userID && r.byUser[prev] == connID {
		delete(r.byUser, prev)
	}
	r.byConn[connID] = userID
	r.byUser[userID] = connID
}

func (r *memoryRegistry) Unregister(connID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connID]
	if !ok {
		return 0, false
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
	return userID, true
}

func (r *memoryRegistry) LookupByUser(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

func (r *memoryRegistry) LookupByConnection(connID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byConn[connID]
	return userID, ok
}
