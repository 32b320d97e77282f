package chat

import (
	"sync"

	"github.com/hongjun500/chat-relay/internal/observe"
)

// Registry 进程内共享的在线客户端集合，容量固定。
//
// 所有读写都在同一把互斥锁内完成，锁只覆盖内存操作，绝不跨网络 I/O。
// 删除采用与末尾交换的方式，因此迭代顺序（以及 LookupByName 的“第一个匹配”）
// 在有删除发生后不再等同于连接先后顺序。
type Registry struct {
	mu       sync.Mutex
	clients  []*Client
	capacity int
}

// NewRegistry 创建容量为 capacity 的注册表，capacity<=0 时使用 16
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = 16
	}
	return &Registry{
		clients:  make([]*Client, 0, capacity),
		capacity: capacity,
	}
}

// Add 容量检查与插入是一个原子操作，并发调用不会突破容量
func (r *Registry) Add(c *Client) error {
	if c == nil || c.Handle == nil {
		return ErrNilClient
	}
	r.mu.Lock()
	if len(r.clients) >= r.capacity {
		r.mu.Unlock()
		return ErrRegistryFull
	}
	for _, existing := range r.clients {
		if existing.Handle == c.Handle {
			r.mu.Unlock()
			return ErrDuplicateHandle
		}
	}
	r.clients = append(r.clients, c)
	r.mu.Unlock()

	observe.AddOnline(1)
	return nil
}

// Remove 按 handle 删除，不存在时为空操作，返回是否真的删除了
func (r *Registry) Remove(h Handle) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	removed := false
	for i, c := range r.clients {
		if c.Handle == h {
			last := len(r.clients) - 1
			r.clients[i] = r.clients[last]
			r.clients[last] = nil
			r.clients = r.clients[:last]
			removed = true
			break
		}
	}
	r.mu.Unlock()

	if removed {
		observe.AddOnline(-1)
	}
	return removed
}

// LookupByName 返回当前迭代顺序下第一个同名客户端
func (r *Registry) LookupByName(name string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Snapshot 返回某一时刻的一致拷贝，供广播在锁外迭代
func (r *Registry) Snapshot() []*Client {
	r.mu.Lock()
	out := make([]*Client, len(r.clients))
	copy(out, r.clients)
	r.mu.Unlock()
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Registry) Cap() int { return r.capacity }

// Names 在线昵称列表，顺序与 Snapshot 一致
func (r *Registry) Names() []string {
	snap := r.Snapshot()
	names := make([]string, 0, len(snap))
	for _, c := range snap {
		names = append(names, c.Name)
	}
	return names
}
