package chat

import (
	"strings"
	"time"

	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

// DefaultMaxMessageSize 格式化后消息的固定缓冲区大小（含结尾符）
const DefaultMaxMessageSize = 256

type Kind string

const (
	KindBroadcast Kind = "broadcast"
	KindWhisper   Kind = "whisper"
)

// DropReason 消息未投递的原因，均为静默丢弃，不回执发送者
type DropReason string

const (
	DropNone      DropReason = ""
	DropMalformed DropReason = "malformed" // @ 后缺少目标或正文
	DropNoTarget  DropReason = "no_target" // 私聊目标不在线
	DropOverflow  DropReason = "overflow"  // 格式化后超出缓冲区
)

// Message 由一行输入解析出的瞬时消息，Target 为空表示广播
type Message struct {
	From   string
	Body   string
	Target string
}

func (m Message) Kind() Kind {
	if m.Target != "" {
		return KindWhisper
	}
	return KindBroadcast
}

// Format 生成发给接收方的文本：私聊补换行，广播保留原始内容
func (m Message) Format() string {
	if m.Kind() == KindWhisper {
		return m.From + ": " + m.Body + "\n"
	}
	return m.From + ": " + m.Body
}

// ParseLine 解析一行输入。以 '@' 开头为私聊：@ 后第一个空白分隔的词是目标，
// 分隔符之后（跳过前导换行、截至下一个换行）为正文；目标或正文缺失时 ok=false。
// 其余均为广播，正文按收到的原样保留。
func ParseLine(from, line string) (msg Message, ok bool) {
	if !strings.HasPrefix(line, "@") {
		return Message{From: from, Body: line}, true
	}
	rest := strings.TrimLeft(line[1:], " \t")
	i := strings.IndexAny(rest, " \t")
	if i <= 0 {
		return Message{}, false
	}
	target := rest[:i]
	if strings.ContainsAny(target, "\r\n") {
		return Message{}, false
	}
	body := strings.TrimLeft(rest[i+1:], "\n")
	if j := strings.IndexByte(body, '\n'); j >= 0 {
		body = body[:j]
	}
	if body == "" {
		return Message{}, false
	}
	return Message{From: from, Body: body, Target: target}, true
}

// Delivery 一次路由的结果，仅用于日志与指标
type Delivery struct {
	Kind       Kind
	Target     string
	Recipients int // 写入成功的接收方数量
	Failed     int // 写入失败（接收方已断开等）的数量
	Dropped    DropReason
}

// Router 对输入行分类并投递到接收方连接
type Router struct {
	reg     *Registry
	events  *Events
	maxSize int
}

// NewRouter events 可为 nil；maxSize<=0 时使用 DefaultMaxMessageSize
func NewRouter(reg *Registry, events *Events, maxSize int) *Router {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Router{reg: reg, events: events, maxSize: maxSize}
}

// Route 处理发送者的一行输入。私聊只写给第一个同名客户端，广播写给除发送者外的所有人。
// 注册表锁只在取快照 / 查找时持有，网络写入全部在锁外完成。
func (r *Router) Route(from *Client, line string) Delivery {
	d := r.route(from, line)
	switch d.Dropped {
	case DropNone:
		observe.IncMessage(string(d.Kind))
	default:
		observe.IncDropped(string(d.Dropped))
	}
	r.events.Emit(&RouteEvent{When: time.Now(), From: from.Name, Delivery: d})
	return d
}

func (r *Router) route(from *Client, line string) Delivery {
	msg, ok := ParseLine(from.Name, line)
	if !ok {
		logger.L().Sugar().Debugw("route_malformed_whisper", "client", from.ID)
		return Delivery{Kind: KindWhisper, Dropped: DropMalformed}
	}
	d := Delivery{Kind: msg.Kind(), Target: msg.Target}

	text := msg.Format()
	if len(text) >= r.maxSize {
		// 不发送截断内容，直接丢弃
		logger.L().Sugar().Warnw("route_overflow", "client", from.ID, "kind", d.Kind, "size", len(text), "max", r.maxSize)
		d.Dropped = DropOverflow
		return d
	}

	if d.Kind == KindWhisper {
		target, found := r.reg.LookupByName(msg.Target)
		if !found {
			d.Dropped = DropNoTarget
			return d
		}
		r.deliver(target, text, &d)
		return d
	}

	for _, c := range r.reg.Snapshot() {
		if c.Handle == from.Handle {
			continue
		}
		r.deliver(c, text, &d)
	}
	return d
}

func (r *Router) deliver(to *Client, text string, d *Delivery) {
	if err := to.Send(text); err != nil {
		// 接收方可能正在关闭，写失败直接忽略
		logger.L().Sugar().Debugw("route_write_error", "client", to.ID, "err", err)
		observe.IncWriteError()
		d.Failed++
		return
	}
	d.Recipients++
}
