// Package api はオンライン講座プラットフォームのHTTP APIを提供する。
//
// 講座の一覧は誰でも参照でき、受講登録と修了証の取得には認証が、
// 講座の管理と受講登録のステータス更新には管理者権限が必要になる。
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/kursus/internal/certificate"
	"github.com/nao1215/kursus/internal/config"
	"github.com/nao1215/kursus/internal/repository"
	"github.com/nao1215/kursus/pkg/identity"
	"github.com/nao1215/kursus/pkg/middleware"
)

// shutdownTimeout は停止シグナル受信後に処理中のリクエストを待つ時間。
const shutdownTimeout = 10 * time.Second

// Deps はServerが利用する外部の依存。
type Deps struct {
	// Store は講座と受講登録の永続化層。必須。
	Store repository.Store
	// Verifier はBearerトークンから呼び出し元を解決する。必須。
	Verifier identity.Verifier
	// Renderer は修了証の描画に使う。nilの場合はデフォルト設定で生成する。
	Renderer *certificate.Renderer
	// Limiter は受講登録と修了証のレート制限に使う。nilの場合は制限しない。
	Limiter middleware.RateLimiter
	// Metrics はリクエストメトリクス。nilの場合は記録しない。
	Metrics *middleware.Metrics
	// Gatherer は /metrics で公開するレジストリ。nilの場合はエンドポイントを作らない。
	Gatherer prometheus.Gatherer
	// Now は修了証の発行日時に使う時計。nilの場合はtime.Now。
	Now func() time.Time
}

// Server はAPIサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は講座と受講登録の永続化層。
	store repository.Store
	// verifier はトークンの検証器。
	verifier identity.Verifier
	// admins は管理者メールアドレスの集合。起動後は変更しない。
	admins identity.AdminSet
	// renderer は修了証の描画器。
	renderer *certificate.Renderer
	// limiter はレート制限器。
	limiter middleware.RateLimiter
	// ratePerMinute は1分あたりの上限。
	ratePerMinute int
	// metrics はリクエストメトリクス。
	metrics *middleware.Metrics
	// gatherer は /metrics で公開するレジストリ。
	gatherer prometheus.Gatherer
	// now は現在時刻を返す。
	now func() time.Time
}

// NewServer は新しいAPIサーバーを生成する。
func NewServer(cfg config.Config, deps Deps) *Server {
	s := &Server{
		router:        gin.New(),
		port:          cfg.Port,
		store:         deps.Store,
		verifier:      deps.Verifier,
		admins:        identity.ParseAdminSet(cfg.AdminEmails),
		renderer:      deps.Renderer,
		limiter:       deps.Limiter,
		ratePerMinute: cfg.RateLimitPerMinute,
		metrics:       deps.Metrics,
		gatherer:      deps.Gatherer,
		now:           deps.Now,
	}
	if s.renderer == nil {
		s.renderer = certificate.NewRenderer()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.admins.Len() == 0 {
		log.Printf("[API] ADMIN_EMAILS が空のため管理者APIは誰も利用できません")
	}

	s.router.Use(middleware.Recovery())
	s.router.Use(gin.Logger())
	if s.metrics != nil {
		s.router.Use(s.metrics.Handler())
	}
	s.router.Use(middleware.CORS(cfg.AllowedOrigins))
	s.setupRoutes()

	return s
}

// Handler はルーターをhttp.Handlerとして返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxが終了したら処理中のリクエストを待って停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Printf("[API] 停止シグナルを受信しました。シャットダウンします")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Kursus API berjalan")
	})
	s.router.GET("/health", s.handleHealth())
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api")

	// 認証不要
	api.GET("/courses", s.handleListCourses())

	// 認証必須
	user := api.Group("", middleware.Authenticate(s.verifier))
	{
		user.POST("/enroll", s.rateLimit(), s.handleEnroll())
		user.GET("/my-enrollments", s.handleMyEnrollments())
		user.GET("/certificates/:courseId", s.rateLimit(), s.handleCertificate())
	}

	// 管理者のみ
	admin := user.Group("", middleware.RequireAdmin(s.admins))
	{
		admin.POST("/courses", s.handleCreateCourse())
		admin.PUT("/courses/:id", s.handleUpdateCourse())
		admin.DELETE("/courses/:id", s.handleDeleteCourse())
		admin.GET("/enrollments", s.handleListEnrollments())
		admin.PUT("/enrollments/:id", s.handleUpdateEnrollmentStatus())
	}
}

// rateLimit は受講登録と修了証に適用するレート制限を返す。
func (s *Server) rateLimit() gin.HandlerFunc {
	return middleware.RateLimit(s.limiter, s.ratePerMinute, time.Minute, s.metrics)
}

// handleHealth はデータベースへの疎通を含むヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			log.Printf("[API] ヘルスチェックでデータベースに接続できません: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "kursus", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "kursus"})
	}
}
