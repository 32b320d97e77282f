package chat

import (
	"io"
	"sync"
	"time"
)

// Handle 一条连接的可写字节流，同时作为注册表中的唯一键。
// 实现必须是可比较的类型（通常是指针），并允许多个 goroutine 并发 Write。
type Handle interface {
	io.Writer
	io.Closer
}

// Client 一条已完成握手的在线连接
type Client struct {
	ID          string
	Name        string
	Handle      Handle
	RemoteAddr  string
	ConnectedAt time.Time

	closeOnce sync.Once
	closeErr  error
}

// NewClient 构造客户端记录，Name 在连接生命周期内不可变
func NewClient(id, name string, h Handle) *Client {
	return &Client{
		ID:          id,
		Name:        name,
		Handle:      h,
		ConnectedAt: time.Now(),
	}
}

// Send 直接写入连接；对已关闭连接的写入只返回错误，由调用方忽略
func (c *Client) Send(message string) error {
	_, err := io.WriteString(c.Handle, message)
	return err
}

// Close 关闭底层连接，可重复调用
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Handle.Close()
	})
	return c.closeErr
}
