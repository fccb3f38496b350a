package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"taskdeck/internal/auth"
	"taskdeck/internal/task"
	"taskdeck/internal/template"
	"taskdeck/pkg/logger"
)

// Pinger 用于健康检查，通常由存储层实现。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options 控制 HTTP 服务的监听与附加能力。
type Options struct {
	Address           string
	StaticDir         string
	ReadHeaderTimeout time.Duration
	CORSOrigins       []string
	Health            Pinger
}

// Services 汇总处理请求所需的业务服务。
type Services struct {
	Tasks     *task.Service
	Templates *template.Service
	Auth      *auth.Service
}

// Server 负责暴露 REST 接口。
type Server struct {
	opts    Options
	svc     Services
	log     *slog.Logger
	handler http.Handler
}

// NewServer 构造 API 服务实例。
func NewServer(opts Options, svc Services) *Server {
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 5 * time.Second
	}
	s := &Server{opts: opts, svc: svc, log: logger.Named("api")}
	s.handler = s.routes()
	return s
}

// Handler 返回完整的 HTTP 处理链，便于测试直接调用。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。上下文取消后会在 5 秒内优雅退出。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Address,
		Handler:           withContext(ctx, s.handler),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("API 服务已启动", slog.String("addr", s.opts.Address))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info("API 服务已停止")
		return nil
	case err := <-errCh:
		return err
	}
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeMessage(w, http.StatusServiceUnavailable, "服务已关闭")
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
