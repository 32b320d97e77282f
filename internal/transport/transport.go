package transport

import (
	"context"
)

const (
	Tcp       = "tcp"
	WebSocket = "websocket"
)

// Transport 统一的传输层接口
// 负责特定协议(TCP/WebSocket)的监听，连接交给 Gateway 处理
type Transport interface {
	Name() string
	ListenAndServe(ctx context.Context, addr string) error
}
