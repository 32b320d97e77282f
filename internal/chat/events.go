package chat

import (
	"sync"
	"time"
)

// EventType 事件类型标识
type EventType string

const (
	EventClientJoined   EventType = "client.joined"
	EventClientLeft     EventType = "client.left"
	EventClientRejected EventType = "client.rejected" // 容量已满被拒绝
	EventMessageRouted  EventType = "message.routed"
)

type Event interface {
	Type() EventType
	Time() time.Time
}

// PresenceEvent 客户端加入 / 离开 / 被拒绝
type PresenceEvent struct {
	Kind       EventType
	When       time.Time
	ID         string
	Name       string
	RemoteAddr string
}

func (e *PresenceEvent) Type() EventType { return e.Kind }
func (e *PresenceEvent) Time() time.Time { return e.When }

// RouteEvent 一次路由的结果，不携带消息正文
type RouteEvent struct {
	When     time.Time
	From     string
	Delivery Delivery
}

func (e *RouteEvent) Type() EventType { return EventMessageRouted }
func (e *RouteEvent) Time() time.Time { return e.When }

type EventHandler func(Event)

type handlerEntry struct {
	id uint64
	fn EventHandler
	q  *orderedQueue // 非 nil 时按 Emit 顺序串行投递
}

// Events 按 EventType 分发的进程内订阅器
type Events struct {
	mu       sync.RWMutex
	handlers map[EventType][]handlerEntry
	nextHID  uint64
	inflight sync.WaitGroup
}

func NewEvents() *Events {
	return &Events{handlers: make(map[EventType][]handlerEntry)}
}

// Subscribe 注册事件处理器
func (ev *Events) Subscribe(t EventType, fn EventHandler) { _ = ev.SubscribeCancelable(t, fn) }

// SubscribeCancelable 注册并返回一个取消函数，用于移除该处理器
func (ev *Events) SubscribeCancelable(t EventType, fn EventHandler) (cancel func()) {
	return ev.subscribe([]EventType{t}, fn, nil)
}

// SubscribeOrdered 为多个事件类型注册同一个处理器，事件按 Emit 的调用顺序逐个投递。
// 同一连接先后发出的 joined / left 因此不会乱序到达。
func (ev *Events) SubscribeOrdered(fn EventHandler, types ...EventType) (cancel func()) {
	return ev.subscribe(types, fn, &orderedQueue{})
}

func (ev *Events) subscribe(types []EventType, fn EventHandler, q *orderedQueue) func() {
	ev.mu.Lock()
	ev.nextHID++
	id := ev.nextHID
	for _, t := range types {
		ev.handlers[t] = append(ev.handlers[t], handlerEntry{id: id, fn: fn, q: q})
	}
	ev.mu.Unlock()

	return func() {
		ev.mu.Lock()
		defer ev.mu.Unlock()
		for _, t := range types {
			entries := ev.handlers[t]
			filtered := make([]handlerEntry, 0, len(entries))
			for _, e := range entries {
				if e.id != id {
					filtered = append(filtered, e)
				}
			}
			if len(filtered) == 0 {
				delete(ev.handlers, t)
				continue
			}
			ev.handlers[t] = filtered
		}
	}
}

// Emit 异步分发事件给所有 handler，非阻塞返回；nil 接收者为空操作
func (ev *Events) Emit(e Event) {
	if ev == nil {
		return
	}
	ev.mu.RLock()
	copied := append([]handlerEntry(nil), ev.handlers[e.Type()]...)
	ev.mu.RUnlock()

	for _, entry := range copied {
		ev.inflight.Add(1)
		if entry.q != nil {
			entry.q.push(e, entry.fn, &ev.inflight)
			continue
		}
		go func(f EventHandler) {
			defer ev.inflight.Done()
			invoke(f, e)
		}(entry.fn)
	}
}

// Wait 阻塞到已分发的事件全部处理完毕。调用方需先停止 Emit，通常在关闭网关之后、
// 关闭订阅者依赖的外部资源之前调用。
func (ev *Events) Wait() {
	if ev == nil {
		return
	}
	ev.inflight.Wait()
}

func invoke(f EventHandler, e Event) {
	defer func() { _ = recover() }()
	f(e)
}

// orderedQueue 单个有序订阅者的待投递事件；队列非空时最多只有一个 goroutine 在消费
type orderedQueue struct {
	mu      sync.Mutex
	items   []Event
	running bool
}

func (q *orderedQueue) push(e Event, fn EventHandler, wg *sync.WaitGroup) {
	q.mu.Lock()
	q.items = append(q.items, e)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()
	go q.drain(fn, wg)
}

func (q *orderedQueue) drain(fn EventHandler, wg *sync.WaitGroup) {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		e := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		invoke(fn, e)
		wg.Done()
	}
}
