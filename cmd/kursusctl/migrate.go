package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/kursus/db"
	"github.com/nao1215/kursus/internal/config"
	"github.com/nao1215/kursus/internal/repository/postgres"
	"github.com/nao1215/kursus/internal/repository/sqlite"
	"github.com/nao1215/kursus/pkg/migration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "埋め込みマイグレーションを操作する",
		Long: `STORE_DRIVER で選択したデータベースに埋め込みマイグレーションを適用する。

接続先は API サーバーと同じ環境変数（SQLITE_PATH, DATABASE_URL）から読み込む。
postgrest ドライバではスキーマを管理できないため、ホスト型データベース側の
SQL エディタで db/migrations/postgres を適用すること。`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "未適用のマイグレーションを全て適用する",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRunner(func(r *migration.Runner) error {
					return r.Up(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "最新のマイグレーションを1つ取り消す",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRunner(func(r *migration.Runner) error {
					return r.Down(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "マイグレーションの適用状態を表示する",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRunner(func(r *migration.Runner) error {
					statuses, err := r.Status(cmd.Context())
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					for _, st := range statuses {
						state := "pending"
						if st.Applied {
							state = "applied"
						}
						fmt.Fprintf(out, "%05d  %-8s %s\n", st.Version, state, st.Path)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

// withRunner は設定に従って接続を開き、fnの終了後に閉じる。
func withRunner(fn func(*migration.Runner) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var (
		sqlDB   *sql.DB
		dialect migration.Dialect
		dir     string
	)
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		sqlDB, err = sqlite.OpenDB(cfg.SQLitePath)
		dialect, dir = migration.DialectSQLite, "migrations/sqlite"
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL が設定されていません")
		}
		sqlDB, err = postgres.OpenSQL(cfg.DatabaseURL)
		dialect, dir = migration.DialectPostgres, "migrations/postgres"
	default:
		return fmt.Errorf("STORE_DRIVER=%s ではマイグレーションを実行できません", cfg.StoreDriver)
	}
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	r, err := migration.NewRunner(sqlDB, dialect, db.Migrations, dir)
	if err != nil {
		return err
	}
	return fn(r)
}
