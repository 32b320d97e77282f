package transport

import (
	"io"
	"time"

	"github.com/hongjun500/chat-relay/internal/chat"
)

// Stream 一条已接受的双向字节流：TCP 连接或适配后的 WebSocket
type Stream interface {
	io.Reader
	chat.Handle
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// timedHandle 为每次写入设置截止时间，避免慢接收方长期阻塞发送方
type timedHandle struct {
	Stream
	timeout time.Duration
}

func (h *timedHandle) Write(p []byte) (int, error) {
	if d, ok := h.Stream.(writeDeadliner); ok {
		_ = d.SetWriteDeadline(time.Now().Add(h.timeout))
	}
	return h.Stream.Write(p)
}

// handleFor 返回注册到注册表中的写端
func handleFor(s Stream, writeTimeout time.Duration) chat.Handle {
	if writeTimeout <= 0 {
		return s
	}
	if _, ok := s.(writeDeadliner); !ok {
		return s
	}
	return &timedHandle{Stream: s, timeout: writeTimeout}
}
