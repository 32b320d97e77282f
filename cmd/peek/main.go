package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hongjun500/chat-relay/internal/bus/redisstream"
)

// peek 订阅 Redis 在线状态流，打印客户端的加入 / 离开 / 拒绝
func main() {
	var (
		addr     = flag.String("addr", "localhost:6379", "redis address")
		db       = flag.Int("db", 0, "redis db")
		stream   = flag.String("stream", "chat:presence", "presence stream key")
		group    = flag.String("group", "chat-peek", "consumer group")
		consumer = flag.String("consumer", "", "consumer name (defaults to hostname)")
	)
	flag.Parse()

	name := *consumer
	if name == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "peek"
		}
		name = host
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bus := redisstream.New(*addr, *db, *stream, *group)
	defer bus.Close()

	if err := bus.EnsureGroup(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ensure group: %v\n", err)
		os.Exit(1)
	}

	err := bus.Consume(ctx, name, func(_ context.Context, m *redisstream.Message) error {
		fmt.Printf("%s  %-16s %-20s %s\n", m.When.Format("2006-01-02 15:04:05"), m.Type, m.Name, m.Addr)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "consume: %v\n", err)
		os.Exit(1)
	}
}
