package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bus 在线状态流，只发布加入 / 离开 / 拒绝事件，不包含任何消息正文
type Bus struct {
	cli    *redis.Client
	stream string
	group  string
}

type Message struct {
	Type string    `json:"type"`
	When time.Time `json:"when"`
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name,omitempty"`
	Addr string    `json:"addr,omitempty"`
}

func New(addr string, db int, stream, group string) *Bus {
	cli := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return NewWithClient(cli, stream, group)
}

func NewWithClient(cli *redis.Client, stream, group string) *Bus {
	return &Bus{cli: cli, stream: stream, group: group}
}

func (b *Bus) Ping(ctx context.Context) error {
	return b.cli.Ping(ctx).Err()
}

// EnsureGroup creates stream and group if not exist
func (b *Bus) EnsureGroup(ctx context.Context) error {
	err := b.cli.XGroupCreateMkStream(ctx, b.stream, b.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", b.group, b.stream, err)
	}
	return nil
}

func (b *Bus) Publish(ctx context.Context, m *Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.cli.XAdd(ctx, &redis.XAddArgs{Stream: b.stream, Values: map[string]any{"data": payload}}).Err()
}

type Handler func(ctx context.Context, m *Message) error

// Consume blocks and delivers messages to handler; cancel ctx to stop
func (b *Bus) Consume(ctx context.Context, consumer string, handler Handler) error {
	for {
		res, err := b.cli.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: consumer,
			Streams:  []string{b.stream, ">"},
			Count:    100,
			Block:    5 * time.Second,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// transient errors: back off briefly and retry
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		for _, str := range res {
			for _, xmsg := range str.Messages {
				if m, ok := decode(xmsg.Values); ok {
					_ = handler(ctx, m)
				}
				_ = b.cli.XAck(ctx, b.stream, b.group, xmsg.ID).Err()
			}
		}
	}
}

func decode(values map[string]any) (*Message, bool) {
	raw, _ := values["data"].(string)
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, false
	}
	return &m, true
}

func (b *Bus) Close() error { return b.cli.Close() }
