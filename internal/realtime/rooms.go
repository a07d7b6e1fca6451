package realtime

import (
	"fmt"
	"sync"
)

// UserChannel 用户私有频道
func UserChannel(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

// ConversationChannel 双人会话频道，与参数顺序无关
func ConversationChannel(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("conversation_%d_%d", a, b)
}

// roomTable 频道成员表
type roomTable struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // channel -> connIDs
	joined  map[string]map[string]struct{} // connID -> channels
}

func newRoomTable() *roomTable {
	return &roomTable{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

func (t *roomTable) join(channel, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.members[channel] == nil {
		t.members[channel] = make(map[string]struct{})
	}
	t.members[channel][connID] = struct{}{}
	if t.joined[connID] == nil {
		t.joined[connID] = make(map[string]struct{})
	}
	t.joined[connID][channel] = struct{}{}
}

func (t *roomTable) leave(channel, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(channel, connID)
}

// leaveAll 断开时清理该连接加入的全部频道
func (t *roomTable) leaveAll(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for channel := range t.joined[connID] {
		t.removeLocked(channel, connID)
	}
	delete(t.joined, connID)
}

func (t *roomTable) removeLocked(channel, connID string) {
	if set, ok := t.members[channel]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(t.members, channel)
		}
	}
	if set, ok := t.joined[connID]; ok {
		delete(set, channel)
	}
}

func (t *roomTable) has(channel, connID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.members[channel][connID]
	return ok
}

// snapshot 频道当前成员
func (t *roomTable) snapshot(channel string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.members[channel]))
	for connID := range t.members[channel] {
		out = append(out, connID)
	}
	return out
}
