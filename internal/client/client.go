package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
)

// ExitCommand 客户端本地处理的退出指令
const ExitCommand = "!exit"

type Options struct {
	Addr string
	Name string
	In   io.Reader
	Out  io.Writer
}

// Run 连接服务端并发送昵称，然后把输入逐行发送、把收到的内容原样输出。
// 输入 !exit、输入结束、服务端断开或 ctx 取消时返回；只有连接失败才返回错误。
func Run(ctx context.Context, opt Options) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", opt.Addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", opt.Addr, err)
	}
	defer conn.Close()

	if _, err := io.WriteString(conn, opt.Name); err != nil {
		return fmt.Errorf("send name: %w", err)
	}

	out := &syncWriter{w: opt.Out}
	var closing atomic.Bool
	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		_, _ = io.Copy(out, conn)
		if !closing.Load() {
			fmt.Fprintln(out, "Server disconnected.")
		}
	}()

	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(opt.In, stop)

	shutdown := func() {
		closing.Store(true)
		_ = conn.Close()
		<-recvDone
	}

	for {
		select {
		case <-ctx.Done():
			shutdown()
			return nil
		case <-recvDone:
			return nil
		case line, ok := <-lines:
			if !ok {
				shutdown()
				return nil
			}
			if strings.HasPrefix(line, ExitCommand) {
				_, _ = io.WriteString(conn, ExitCommand+"\n")
				shutdown()
				fmt.Fprintln(out, "Client exiting.")
				return nil
			}
			if _, err := io.WriteString(conn, line); err != nil {
				shutdown()
				return nil
			}
		}
	}
}

func readLines(in io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		r := bufio.NewReader(in)
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-stop:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
