package subscriber

import (
	"context"
	"time"

	"github.com/hongjun500/chat-relay/internal/bus/redisstream"
	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

// publishTimeout 单次发布到在线状态流的期限
const publishTimeout = 2 * time.Second

// Publisher 在线状态的外部出口，由 redisstream.Bus 实现
type Publisher interface {
	Publish(ctx context.Context, m *redisstream.Message) error
}

// RegisterAll 把所有内置订阅者注册到 Events；pub 为 nil 时不发布在线状态
func RegisterAll(events *chat.Events, pub Publisher) {
	registerPresenceLog(events)
	registerRouteLog(events)
	if pub != nil {
		registerPresenceBus(events, pub)
	}
}

var presenceTypes = []chat.EventType{
	chat.EventClientJoined,
	chat.EventClientLeft,
	chat.EventClientRejected,
}

func registerPresenceLog(events *chat.Events) {
	for _, t := range presenceTypes {
		events.Subscribe(t, func(e chat.Event) {
			pe := e.(*chat.PresenceEvent)
			logger.L().Sugar().Infow(string(pe.Kind), "conn", pe.ID, "name", pe.Name, "addr", pe.RemoteAddr)
		})
	}
}

func registerRouteLog(events *chat.Events) {
	events.Subscribe(chat.EventMessageRouted, func(e chat.Event) {
		re := e.(*chat.RouteEvent)
		d := re.Delivery
		logger.L().Sugar().Debugw("message_routed",
			"from", re.From,
			"kind", d.Kind,
			"target", d.Target,
			"recipients", d.Recipients,
			"failed", d.Failed,
			"dropped", d.Dropped,
		)
	})
}

// registerPresenceBus 按事件发生顺序逐条发布，流中不会出现先 left 后 joined
func registerPresenceBus(events *chat.Events, pub Publisher) {
	events.SubscribeOrdered(func(e chat.Event) {
		pe := e.(*chat.PresenceEvent)
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := pub.Publish(ctx, ToMessage(pe)); err != nil {
			logger.L().Sugar().Warnw("presence_publish_error", "type", pe.Kind, "err", err)
		}
	}, presenceTypes...)
}

// ToMessage 把在线事件转换为流消息
func ToMessage(pe *chat.PresenceEvent) *redisstream.Message {
	return &redisstream.Message{
		Type: string(pe.Kind),
		When: pe.When,
		ID:   pe.ID,
		Name: pe.Name,
		Addr: pe.RemoteAddr,
	}
}
