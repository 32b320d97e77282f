package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hongjun500/chat-relay/internal/bus/redisstream"
	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/client"
	"github.com/hongjun500/chat-relay/internal/config"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/internal/subscriber"
	"github.com/hongjun500/chat-relay/internal/transport"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

const usage = `usage:
  chat server <port>
  chat client <address> <port> <name>
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	_ = logger.L().Sync()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 1
	}
	switch args[0] {
	case "server":
		if len(args) < 2 {
			fmt.Fprint(stderr, usage)
			return 1
		}
		return runServer(ctx, args[1], stderr)
	case "client":
		if len(args) < 4 {
			fmt.Fprint(stderr, usage)
			return 1
		}
		return runClient(ctx, args[1], args[2], args[3], stdin, stdout, stderr)
	default:
		fmt.Fprint(stderr, usage)
		return 1
	}
}

func parsePort(s string) (string, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 0 || p > 65535 {
		return "", fmt.Errorf("invalid port %q", s)
	}
	return strconv.Itoa(p), nil
}

func runClient(ctx context.Context, host, port, name string, stdin io.Reader, stdout, stderr io.Writer) int {
	p, err := parsePort(port)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	err = client.Run(ctx, client.Options{
		Addr: net.JoinHostPort(host, p),
		Name: name,
		In:   stdin,
		Out:  stdout,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func runServer(ctx context.Context, port string, stderr io.Writer) int {
	p, err := parsePort(port)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Encoding); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cfg.TCPAddr = net.JoinHostPort("", p)

	log := logger.L().Sugar()
	reg := chat.NewRegistry(cfg.MaxClients)
	events := chat.NewEvents()

	var (
		pub     subscriber.Publisher
		closers []io.Closer
	)
	if cfg.Redis.Addr != "" {
		bus := redisstream.New(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Stream, cfg.Redis.Group)
		closers = append(closers, bus)
		if err := bus.Ping(ctx); err != nil {
			log.Warnw("presence_stream_disabled", "addr", cfg.Redis.Addr, "err", err)
		} else {
			pub = bus
		}
	}
	subscriber.RegisterAll(events, pub)

	gw := transport.NewGateway(reg, events, transport.Options{
		MaxMessageSize:   cfg.MaxMessageSize,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
	})
	defer shutdown(gw, events, closers...)

	g, gctx := errgroup.WithContext(ctx)
	serve := func(t transport.Transport, addr string) {
		g.Go(func() error {
			if err := t.ListenAndServe(gctx, addr); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", t.Name(), err)
			}
			return nil
		})
	}
	serve(transport.NewTCPServer(gw), cfg.TCPAddr)
	if cfg.WSAddr != "" {
		serve(transport.NewWSServer(gw), cfg.WSAddr)
	}
	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			log.Infow("http_listen", "addr", cfg.HTTPAddr)
			return observe.StartHTTP(gctx, cfg.HTTPAddr, reg)
		})
	}

	log.Infow("chat_relay_start", "tcp", cfg.TCPAddr, "ws", cfg.WSAddr, "http", cfg.HTTPAddr, "max_clients", reg.Cap())
	if err := g.Wait(); err != nil {
		log.Errorw("chat_relay_exit", "err", err)
		return 1
	}
	log.Infow("chat_relay_stop")
	return 0
}

// shutdown 先断开所有连接，再等最后一批 left 事件处理完，最后关闭订阅者依赖的资源
func shutdown(gw *transport.Gateway, events *chat.Events, closers ...io.Closer) {
	gw.Close()
	events.Wait()
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.L().Sugar().Warnw("shutdown_close_error", "err", err)
		}
	}
}
