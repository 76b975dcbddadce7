// Package db は埋め込みのマイグレーションSQLを提供する。
// ドライバごとにディレクトリを分けている（migrations/postgres, migrations/sqlite）。
package db

import "embed"

// Migrations はgoose形式のマイグレーションファイル群。
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var Migrations embed.FS
