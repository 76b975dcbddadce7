// Package config は環境変数からサーバー設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// StoreDriver はデータベースの接続方式。
type StoreDriver string

const (
	// DriverSQLite はローカルのSQLiteファイルを使う。
	DriverSQLite StoreDriver = "sqlite"
	// DriverPostgres はDATABASE_URLでPostgreSQLに直接接続する。
	DriverPostgres StoreDriver = "postgres"
	// DriverPostgREST はホスト型データベースのREST APIを使う。
	DriverPostgREST StoreDriver = "postgrest"
)

// Config はAPIサーバーの設定。
type Config struct {
	// Port はリッスンポート。
	Port string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// AdminEmails はカンマ区切りの管理者メールアドレス。
	AdminEmails string

	// StoreDriver はデータベースの接続方式。
	StoreDriver StoreDriver
	// DatabaseURL はpostgresドライバの接続文字列。
	DatabaseURL string
	// SQLitePath はsqliteドライバのファイルパス。
	SQLitePath string
	// MigrateOnStart は起動時に埋め込みマイグレーションを適用するかどうか。
	MigrateOnStart bool

	// SupabaseURL は認証サービスとREST APIのベースURL。
	SupabaseURL string
	// SupabaseAnonKey は認証サービスに送る公開キー。
	SupabaseAnonKey string
	// SupabaseServiceRoleKey はREST APIに送る特権キー。
	SupabaseServiceRoleKey string
	// SupabaseJWTSecret が設定されている場合、トークンをローカルで検証する。
	SupabaseJWTSecret string

	// RateLimitPerMinute は受講登録と修了証の1分あたりの上限。0で無効。
	RateLimitPerMinute int
	// RedisAddr が設定されている場合、レート制限をRedisで共有する。
	RedisAddr string
	// RedisPassword はRedisのパスワード。
	RedisPassword string
	// RedisDB はRedisのデータベース番号。
	RedisDB int
}

// Load は環境変数から設定を読み込む。
// 数値や真偽値として解釈できない値はエラーとして返す。
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		Port:                   getEnvOr("PORT", "5000"),
		AllowedOrigins:         splitList(getEnvOr("ALLOWED_ORIGIN", "http://localhost:5173")),
		AdminEmails:            os.Getenv("ADMIN_EMAILS"),
		StoreDriver:            StoreDriver(strings.ToLower(getEnvOr("STORE_DRIVER", string(DriverSQLite)))),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		SQLitePath:             getEnvOr("SQLITE_PATH", "kursus.db"),
		SupabaseURL:            strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:        os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseJWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
		RedisAddr:              os.Getenv("RATE_LIMIT_REDIS_ADDR"),
		RedisPassword:          os.Getenv("RATE_LIMIT_REDIS_PASSWORD"),
	}

	var err error
	if cfg.MigrateOnStart, err = strconv.ParseBool(getEnvOr("MIGRATE_ON_START", "true")); err != nil {
		errs = append(errs, fmt.Errorf("MIGRATE_ON_START の値が不正です: %w", err))
	}
	if cfg.RateLimitPerMinute, err = strconv.Atoi(getEnvOr("RATE_LIMIT_PER_MINUTE", "30")); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE の値が不正です: %w", err))
	}
	if cfg.RedisDB, err = strconv.Atoi(getEnvOr("RATE_LIMIT_REDIS_DB", "0")); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_REDIS_DB の値が不正です: %w", err))
	}

	return cfg, errors.Join(errs...)
}

// Validate は設定の組み合わせを検証し、問題をすべてまとめて返す。
func (c Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT が空です"))
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite には SQLITE_PATH が必要です"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres には DATABASE_URL が必要です"))
		}
	case DriverPostgREST:
		if c.SupabaseURL == "" {
			errs = append(errs, errors.New("postgrest には SUPABASE_URL が必要です"))
		}
		if c.SupabaseServiceRoleKey == "" {
			errs = append(errs, errors.New("postgrest には SUPABASE_SERVICE_ROLE_KEY が必要です"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER が不正です: %q", c.StoreDriver))
	}

	if c.SupabaseJWTSecret == "" && (c.SupabaseURL == "" || c.SupabaseAnonKey == "") {
		errs = append(errs, errors.New("認証には SUPABASE_JWT_SECRET、または SUPABASE_URL と SUPABASE_ANON_KEY が必要です"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE は0以上で指定してください"))
	}
	if c.RedisDB < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REDIS_DB は0以上で指定してください"))
	}

	return errors.Join(errs...)
}

// UseLocalJWT はトークンをローカルで検証するかどうかを返す。
func (c Config) UseLocalJWT() bool {
	return c.SupabaseJWTSecret != ""
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// splitList はカンマ区切りの値を空要素を除いて分割する。
func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
