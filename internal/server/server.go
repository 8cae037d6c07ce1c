package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/store"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server は1つのプロジェクトを公開する HTTP API です。
type Server struct {
	orch   *workflow.Orchestrator
	store  *store.Store
	hub    *Hub
	engine *gin.Engine
}

// Args は Server の構築に必要な依存関係です。
type Args struct {
	Orchestrator *workflow.Orchestrator
}

// New はルーティングを設定した Server を生成します。
func New(args Args) (*Server, error) {
	if args.Orchestrator == nil {
		return nil, fmt.Errorf("Orchestrator は必須です")
	}
	s := &Server{
		orch:  args.Orchestrator,
		store: args.Orchestrator.Store(),
		hub:   NewHub(args.Orchestrator.Store()),
	}
	s.engine = s.routes()
	return s, nil
}

// Handler は http.Handler としてのルーターを返します。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub は WebSocket の配信ハブを返します。
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), requestMetrics())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", s.hub.ServeWS)

	api := r.Group("/api")
	{
		api.GET("/project", s.getProject)
		api.DELETE("/project", s.clearProject)

		api.GET("/options", s.getOptions)
		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.putSettings)

		api.POST("/characters", s.createCharacter)
		api.PUT("/characters/:id", s.updateCharacter)
		api.DELETE("/characters/:id", s.deleteCharacter)

		api.POST("/scenes", s.createScene)
		api.PATCH("/scenes/:id", s.patchScene)
		api.DELETE("/scenes/:id", s.deleteScene)
		api.POST("/scenes/:id/generate", s.generateScene)
		api.POST("/scenes/:id/regenerate", s.regenerateScene)
		api.GET("/scenes/:id/prompt", s.previewPrompt)

		api.POST("/generate-pending", s.generatePending)
	}
	return r
}

// Run は addr で待ち受け、ctx が終了したら接続を閉じて戻ります。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.hub.Run(egCtx)
		return nil
	})
	eg.Go(func() error {
		slog.InfoContext(ctx, "HTTPサーバーを起動します", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーの起動に失敗しました: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("HTTPサーバーを停止します")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
