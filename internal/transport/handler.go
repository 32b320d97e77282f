package transport

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

// ServerFullMessage 容量已满时发给新连接的固定文本
const ServerFullMessage = "Server full\n"

// State 连接处理器状态
type State int

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// connHandler 每条连接一个，独占该连接的字节流与读缓冲
type connHandler struct {
	g      *Gateway
	stream Stream
	addr   string
	id     string
	state  State
	client *chat.Client
}

func newConnHandler(g *Gateway, s Stream, remoteAddr string) *connHandler {
	return &connHandler{
		g:      g,
		stream: s,
		addr:   remoteAddr,
		id:     uuid.New().String(),
		state:  StateConnecting,
	}
}

func (h *connHandler) setState(s State) {
	logger.L().Sugar().Debugw("conn_state", "conn", h.id, "from", h.state.String(), "to", s.String())
	h.state = s
}

func (h *connHandler) run() {
	defer h.close()
	if !h.handshake() {
		return
	}
	h.readLoop()
}

// handshake 一次性读取客户端发送的昵称，然后原子地检查容量并注册
func (h *connHandler) handshake() bool {
	if h.g.opt.HandshakeTimeout > 0 {
		if d, ok := h.stream.(readDeadliner); ok {
			_ = d.SetReadDeadline(time.Now().Add(h.g.opt.HandshakeTimeout))
			defer func() { _ = d.SetReadDeadline(time.Time{}) }()
		}
	}

	buf := make([]byte, h.g.opt.MaxMessageSize)
	n, err := h.stream.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.ErrNoProgress
		}
		logger.L().Sugar().Infow("handshake_error", "conn", h.id, "addr", h.addr, "err", err)
		observe.IncConnection("failed")
		return false
	}
	name := strings.TrimRight(string(buf[:n]), "\r\n")

	c := chat.NewClient(h.id, name, handleFor(h.stream, h.g.opt.WriteTimeout))
	c.RemoteAddr = h.addr
	if err := h.g.reg.Add(c); err != nil {
		if errors.Is(err, chat.ErrRegistryFull) {
			_, _ = io.WriteString(h.stream, ServerFullMessage)
			observe.IncConnection("rejected")
			h.g.events.Emit(h.presence(chat.EventClientRejected, name))
			return false
		}
		logger.L().Sugar().Warnw("register_error", "conn", h.id, "err", err)
		observe.IncConnection("failed")
		return false
	}

	h.client = c
	observe.IncConnection("accepted")
	h.g.events.Emit(h.presence(chat.EventClientJoined, name))
	h.setState(StateActive)
	return true
}

// readLoop 读取一个输入单元并路由，直到读失败；同一发送者的消息按顺序处理
func (h *connHandler) readLoop() {
	// 每次至多读取 MaxMessageSize-1 字节
	ur := newUnitReader(h.stream, h.g.opt.MaxMessageSize-1)
	for {
		unit, err := ur.Next()
		if err != nil {
			// EOF 与其他读错误同样处理
			if !errors.Is(err, io.EOF) {
				logger.L().Sugar().Debugw("conn_read_error", "conn", h.id, "err", err)
			}
			return
		}
		h.g.router.Route(h.client, unit)
	}
}

// close 释放连接并从注册表移除，可在任意状态调用
func (h *connHandler) close() {
	h.setState(StateClosing)
	if h.client != nil {
		_ = h.client.Close()
		if h.g.reg.Remove(h.client.Handle) {
			h.g.events.Emit(h.presence(chat.EventClientLeft, h.client.Name))
		}
	} else {
		_ = h.stream.Close()
	}
	h.setState(StateClosed)
}

func (h *connHandler) presence(kind chat.EventType, name string) *chat.PresenceEvent {
	return &chat.PresenceEvent{
		Kind:       kind,
		When:       time.Now(),
		ID:         h.id,
		Name:       name,
		RemoteAddr: h.addr,
	}
}
