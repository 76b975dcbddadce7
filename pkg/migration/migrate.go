// Package migration はデータベースのマイグレーションを管理する。
// embed.FSからgoose形式のSQLファイルを読み込み、goose_db_versionテーブルで適用状態を追跡する。
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"

	"github.com/pressly/goose/v3"
)

// Dialect はマイグレーション対象のSQL方言。
type Dialect string

const (
	// DialectPostgres はPostgreSQL（ホスト型データベースを含む）。
	DialectPostgres Dialect = "postgres"
	// DialectSQLite はSQLite。
	DialectSQLite Dialect = "sqlite"
)

// Runner は1つのデータベースに対するマイグレーション操作をまとめる。
type Runner struct {
	provider *goose.Provider
}

// NewRunner はfsysのdir配下にあるマイグレーションファイルを対象とするRunnerを生成する。
// ファイル名形式: 00001_description.sql（goose形式）
func NewRunner(db *sql.DB, dialect Dialect, fsys fs.FS, dir string) (*Runner, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションディレクトリの取得に失敗: %w", err)
	}

	var gooseDialect goose.Dialect
	switch dialect {
	case DialectPostgres:
		gooseDialect = goose.DialectPostgres
	case DialectSQLite:
		gooseDialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("未対応のSQL方言です: %q", dialect)
	}

	provider, err := goose.NewProvider(gooseDialect, db, sub)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションの準備に失敗: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Up は未適用のマイグレーションを順序通りに適用する。
// 適用済みのものはスキップする。
func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}
	for _, res := range results {
		log.Printf("[Migration] マイグレーション %05d を適用しました (%s)", res.Source.Version, res.Duration)
	}
	return nil
}

// Down は最新のマイグレーションを1つ取り消す。
func (r *Runner) Down(ctx context.Context) error {
	res, err := r.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("マイグレーションの取り消しに失敗: %w", err)
	}
	log.Printf("[Migration] マイグレーション %05d を取り消しました", res.Source.Version)
	return nil
}

// Status は各マイグレーションのバージョンと適用状態を返す。
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("マイグレーション状態の取得に失敗: %w", err)
	}

	out := make([]Status, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, Status{
			Version: st.Source.Version,
			Path:    st.Source.Path,
			Applied: st.State == goose.StateApplied,
		})
	}
	return out, nil
}

// Status は1つのマイグレーションファイルの適用状態。
type Status struct {
	// Version はファイル名先頭の番号。
	Version int64
	// Path はファイルパス。
	Path string
	// Applied は適用済みかどうか。
	Applied bool
}

// Up はdb.Migrationsのような埋め込みFSを使い、一度だけマイグレーションを適用する。
func Up(ctx context.Context, db *sql.DB, dialect Dialect, fsys fs.FS, dir string) error {
	r, err := NewRunner(db, dialect, fsys, dir)
	if err != nil {
		return err
	}
	return r.Up(ctx)
}
