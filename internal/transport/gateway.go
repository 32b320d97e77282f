package transport

import (
	"sync"

	"github.com/hongjun500/chat-relay/internal/chat"
)

// Gateway 传输层与聊天核心之间的桥梁。
// 每条连接由一个 connHandler 独占处理，注册表是唯一的跨连接共享状态。
type Gateway struct {
	reg    *chat.Registry
	router *chat.Router
	events *chat.Events
	opt    Options

	mu      sync.Mutex
	streams map[Stream]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewGateway events 可为 nil
func NewGateway(reg *chat.Registry, events *chat.Events, opt Options) *Gateway {
	opt = opt.withDefaults()
	return &Gateway{
		reg:     reg,
		router:  chat.NewRouter(reg, events, opt.MaxMessageSize),
		events:  events,
		opt:     opt,
		streams: make(map[Stream]struct{}),
	}
}

// Registry 返回网关使用的注册表
func (g *Gateway) Registry() *chat.Registry { return g.reg }

// Go 在独立 goroutine 中处理连接
func (g *Gateway) Go(s Stream, remoteAddr string) {
	if !g.track(s) {
		_ = s.Close()
		return
	}
	go func() {
		defer g.untrack(s)
		newConnHandler(g, s, remoteAddr).run()
	}()
}

// Serve 在当前 goroutine 中处理连接，直到连接关闭
func (g *Gateway) Serve(s Stream, remoteAddr string) {
	if !g.track(s) {
		_ = s.Close()
		return
	}
	defer g.untrack(s)
	newConnHandler(g, s, remoteAddr).run()
}

func (g *Gateway) track(s Stream) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.streams[s] = struct{}{}
	g.wg.Add(1)
	return true
}

func (g *Gateway) untrack(s Stream) {
	g.mu.Lock()
	delete(g.streams, s)
	g.mu.Unlock()
	g.wg.Done()
}

// Close 关闭所有仍在处理的连接并等待其处理器退出，之后到达的连接直接关闭
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	open := make([]Stream, 0, len(g.streams))
	for s := range g.streams {
		open = append(open, s)
	}
	g.mu.Unlock()

	for _, s := range open {
		_ = s.Close()
	}
	g.wg.Wait()
}
