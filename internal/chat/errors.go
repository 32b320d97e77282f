package chat

import (
	"fmt"
)

// 注册表错误定义
var (
	ErrRegistryFull    = newChatError(2001, "registry full")
	ErrDuplicateHandle = newChatError(2002, "handle already registered")
	ErrNilClient       = newChatError(2003, "client or handle is nil")
)

type chatError struct {
	code int
	msg  string
}

func (e *chatError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.code, e.msg)
}

// Code 返回错误码
func (e *chatError) Code() int { return e.code }

func newChatError(code int, message string) *chatError {
	return &chatError{code: code, msg: message}
}
