package chat

import (
	"bytes"
	"errors"
	"sync"
)

var errHandleClosed = errors.New("handle closed")

// bufHandle 内存中的 Handle，记录写入内容
type bufHandle struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (h *bufHandle) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, errHandleClosed
	}
	return h.buf.Write(p)
}

func (h *bufHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *bufHandle) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.String()
}

func newTestClient(name string) (*Client, *bufHandle) {
	h := &bufHandle{}
	return NewClient(name+"-id", name, h), h
}
