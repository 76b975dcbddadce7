// 講座プラットフォームAPIのエントリポイント。
// 環境変数から設定を読み込み、データベース・認証・レート制限を組み立ててHTTPサーバーを起動する。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nao1215/kursus/internal/api"
	"github.com/nao1215/kursus/internal/config"
	"github.com/nao1215/kursus/internal/repository"
	"github.com/nao1215/kursus/internal/repository/postgres"
	"github.com/nao1215/kursus/internal/repository/postgrest"
	"github.com/nao1215/kursus/internal/repository/sqlite"
	"github.com/nao1215/kursus/pkg/identity"
	"github.com/nao1215/kursus/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定が不正です: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("データベースの初期化に失敗: %v", err)
	}
	defer store.Close()

	limiter, err := newRateLimiter(ctx, cfg)
	if err != nil {
		log.Fatalf("レート制限の初期化に失敗: %v", err)
	}
	defer limiter.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := api.NewServer(cfg, api.Deps{
		Store:    store,
		Verifier: newVerifier(cfg),
		Limiter:  limiter,
		Metrics:  middleware.NewMetrics(reg),
		Gatherer: reg,
	})

	log.Printf("Kursus APIを起動します: :%s (driver=%s)", cfg.Port, cfg.StoreDriver)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Kursus APIの起動に失敗: %v", err)
	}
}

// openStore は設定された接続方式でStoreを開く。
func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath, sqlite.WithMigration(cfg.MigrateOnStart))
	case config.DriverPostgres:
		if cfg.MigrateOnStart {
			if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		return postgres.Open(ctx, cfg.DatabaseURL)
	case config.DriverPostgREST:
		return postgrest.New(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey), nil
	default:
		return nil, fmt.Errorf("未対応のSTORE_DRIVERです: %q", cfg.StoreDriver)
	}
}

// newVerifier はJWTシークレットがあればローカル検証を、なければ認証サービスへの照会を使う。
func newVerifier(cfg config.Config) identity.Verifier {
	if cfg.UseLocalJWT() {
		log.Printf("トークンをローカルで検証します")
		return identity.NewJWTVerifier(cfg.SupabaseJWTSecret)
	}
	return identity.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
}

// newRateLimiter はREDIS_ADDRがあればRedisを、なければプロセス内のカウンタを使う。
func newRateLimiter(ctx context.Context, cfg config.Config) (middleware.RateLimiter, error) {
	if cfg.RedisAddr == "" {
		return middleware.NewMemoryRateLimiter(), nil
	}
	return middleware.NewRedisRateLimiter(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}
