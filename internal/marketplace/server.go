package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/job-marketplace/internal/config"
	"github.com/nao1215/job-marketplace/internal/store"
	"github.com/nao1215/job-marketplace/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンで処理中のリクエストを待つ最大時間。
const shutdownTimeout = 10 * time.Second

// Server はマーケットプレイスAPIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はジョブと入札の永続化層。
	store store.Store
	// logger は構造化ロガー。
	logger *slog.Logger
	// tokenSecret はセッショントークンの署名鍵。
	tokenSecret string
	// sessionTTL はセッショントークンの有効期間。
	sessionTTL time.Duration
	// cookie はセッションCookieの属性。
	cookie middleware.CookieOptions
}

// NewServer は新しいマーケットプレイスサーバーを生成する。
// st のライフサイクル（Close）は呼び出し元が管理する。
func NewServer(cfg *config.Config, st store.Store, logger *slog.Logger) *Server {
	router := gin.New()
	// Recovery より外側に置き、パニックしたリクエストもアクセスログに残す
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.ClientOrigins))
	router.Use(middleware.ErrorBoundary(logger))

	s := &Server{
		router:      router,
		port:        cfg.Port,
		store:       st,
		logger:      logger,
		tokenSecret: cfg.TokenSecret,
		sessionTTL:  cfg.SessionTTL,
		cookie:      middleware.NewCookieOptions(cfg.IsProduction(), cfg.SessionTTL),
	}
	s.setupRoutes()

	return s
}

// Handler はサーバーのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctx がキャンセルされるとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "marketplace server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down marketplace server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
// 所有者チェックが必要なルートは SessionAuth → RequireOwner の順に通し、
// 不一致の場合はストレージにアクセスする前に拒否する。
func (s *Server) setupRoutes() {
	auth := middleware.SessionAuth(s.tokenSecret, s.cookie.Name)

	// セッション
	s.router.POST("/jwt", s.handleIssueToken())
	s.router.GET("/logout", s.handleLogout())

	// ジョブ
	s.router.POST("/add-job", s.handleCreateJob())
	s.router.GET("/jobs", s.handleListJobs())
	s.router.GET("/jobs/:email", auth, middleware.RequireOwner("email"), s.handleListJobsByOwner())
	s.router.GET("/all-jobs", s.handleSearchJobs())
	s.router.GET("/job/:id", s.handleGetJob())
	s.router.DELETE("/job/:id", auth, s.handleDeleteJob())
	s.router.PUT("/update-job/:id", s.handleUpdateJob())

	// 入札
	s.router.POST("/add-bid", s.handleCreateBid())
	s.router.GET("/bids/:email", auth, middleware.RequireOwner("email"), s.handleListBids())
	s.router.PATCH("/bid-status-update/:id", auth, s.handleUpdateBidStatus())

	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello from the job marketplace server")
	})

	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())
}

// handleHealth はストレージへの疎通を含むヘルスチェックを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			s.logger.WarnContext(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "marketplace"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "marketplace"})
	}
}
