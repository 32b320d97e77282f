package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hongjun500/chat-relay/pkg/logger"
)

// acceptBackoff 单次 accept 失败后的短暂等待，避免 EMFILE 等情况下空转
const acceptBackoff = 10 * time.Millisecond

// TCPServer 接受 TCP 连接并交给 Gateway 处理
type TCPServer struct {
	gw *Gateway
}

func NewTCPServer(gw *Gateway) *TCPServer {
	return &TCPServer{gw: gw}
}

func (s *TCPServer) Name() string { return Tcp }

// ListenAndServe 绑定地址失败时立即返回错误
func (s *TCPServer) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("tcp listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 持续接受连接直到 ctx 取消或 listener 被关闭；单次 accept 失败只记录日志
func (s *TCPServer) Serve(ctx context.Context, ln net.Listener) error {
	logger.L().Sugar().Infow("tcp_listen", "addr", ln.Addr().String())
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			logger.L().Sugar().Warnw("tcp_accept_error", "err", err)
			time.Sleep(acceptBackoff)
			continue
		}
		s.gw.Go(conn, conn.RemoteAddr().String())
	}
}
