package transport

import (
	"time"

	"github.com/hongjun500/chat-relay/internal/chat"
)

// Options configures transports (shared across TCP/WS where applicable)
type Options struct {
	MaxMessageSize   int           // 单次读取与格式化消息的上限 (bytes)，默认 256
	HandshakeTimeout time.Duration // 等待昵称的期限；0 表示不限时
	WriteTimeout     time.Duration // 每次写入接收方的期限；0 表示不限时
}

func (o Options) withDefaults() Options {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = chat.DefaultMaxMessageSize
	}
	if o.HandshakeTimeout < 0 {
		o.HandshakeTimeout = 0
	}
	if o.WriteTimeout < 0 {
		o.WriteTimeout = 0
	}
	return o
}
