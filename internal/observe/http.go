package observe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Roster 提供在线名单，由注册表实现
type Roster interface {
	Cap() int
	Names() []string
}

type clientsView struct {
	Count    int      `json:"count"`
	Capacity int      `json:"capacity"`
	Names    []string `json:"names"`
}

// NewHandler 构造运维 HTTP 路由：/healthz、/metrics、/clients
func NewHandler(roster Roster) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok\n")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/clients", func(c *gin.Context) {
		names := roster.Names()
		if names == nil {
			names = []string{}
		}
		c.JSON(http.StatusOK, clientsView{
			Count:    len(names),
			Capacity: roster.Cap(),
			Names:    names,
		})
	})
	return r
}

// StartHTTP 启动运维 HTTP，ctx 取消后优雅退出
func StartHTTP(ctx context.Context, addr string, roster Roster) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(roster),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
