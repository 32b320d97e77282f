package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

// wsReadLimit 单帧上限；超过后连接按读错误关闭
const wsReadLimit = 64 << 10

// wsStream 把 WebSocket 连接适配为字节流：每个文本帧视为一行输入，
// 缺少结尾换行时补一个；每次 Write 发送一个文本帧。
type wsStream struct {
	conn    *websocket.Conn
	pending []byte

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newWSStream(conn *websocket.Conn) *wsStream {
	conn.SetReadLimit(wsReadLimit)
	return &wsStream{conn: conn}
}

func (s *wsStream) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		mt, r, err := s.conn.NextReader()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		frame, err := io.ReadAll(r)
		if err != nil {
			return 0, err
		}
		if len(frame) > 0 && !bytes.HasSuffix(frame, []byte("\n")) {
			frame = append(frame, '\n')
		}
		s.pending = frame
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write 可被多个路由 goroutine 并发调用，gorilla 要求写操作串行
func (s *wsStream) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *wsStream) SetReadDeadline(t time.Time) error { return s.conn.SetReadDeadline(t) }

func (s *wsStream) SetWriteDeadline(t time.Time) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.SetWriteDeadline(t)
}

// WSServer 把 WebSocket 客户端接入与 TCP 相同的注册表和协议：
// 第一个文本帧为昵称，之后每个文本帧为一行消息。
type WSServer struct {
	gw       *Gateway
	Path     string // WebSocket endpoint path, defaults to "/ws"
	upgrader websocket.Upgrader
}

func NewWSServer(gw *Gateway) *WSServer {
	return &WSServer{
		gw:   gw,
		Path: "/ws",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (ws *WSServer) Name() string { return WebSocket }

// ServeHTTP 升级连接并在当前 goroutine 中处理，直到连接关闭
func (ws *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写回错误响应
		logger.L().Sugar().Debugw("websocket_upgrade_error", "addr", r.RemoteAddr, "err", err)
		return
	}
	ws.gw.Serve(newWSStream(conn), r.RemoteAddr)
}

func (ws *WSServer) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(ws.Path, ws)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.L().Sugar().Infow("websocket_listen", "addr", addr, "path", ws.Path)

	// Graceful shutdown; hijacked connections are closed by Gateway.Close
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
