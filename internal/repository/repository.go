// Package repository は講座と受講登録の永続化インターフェースを定義する。
//
// 実装はドライバごとのサブパッケージにある。
//   - postgres: pgxpoolで直接PostgreSQLに接続する
//   - postgrest: ホスト型データベースのREST APIを特権キーで呼び出す
//   - sqlite: 開発・テスト用のローカルファイル
package repository

import (
	"context"

	"github.com/nao1215/kursus/internal/domain"
)

// CourseRepository は講座の永続化を担う。
type CourseRepository interface {
	// ListCourses は全講座を作成日時の降順で返す。
	ListCourses(ctx context.Context) ([]domain.Course, error)
	// GetCourse はIDで講座を取得する。存在しない場合ErrNotFound。
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	// CreateCourse は講座を作成し、保存された値を返す。
	CreateCourse(ctx context.Context, in domain.CourseInput) (domain.Course, error)
	// UpdateCourse はpatchで指定されたフィールドのみ更新する。存在しない場合ErrNotFound。
	UpdateCourse(ctx context.Context, id string, patch domain.CoursePatch) error
	// DeleteCourse は講座を削除する。存在しない場合ErrNotFound。
	DeleteCourse(ctx context.Context, id string) error
}

// EnrollmentRepository は受講登録の永続化を担う。
type EnrollmentRepository interface {
	// FindEnrollment は講座とメールアドレスの組で受講登録を探す。存在しない場合ErrNotFound。
	FindEnrollment(ctx context.Context, courseID, email string) (domain.EnrollmentView, error)
	// CreateEnrollment は組が未登録の場合のみ挿入する。既に存在する場合ErrAlreadyEnrolled。
	CreateEnrollment(ctx context.Context, courseID, email, status string) (domain.Enrollment, error)
	// ListEnrollmentsByEmail は指定ユーザーの受講登録を講座名付きで返す。
	ListEnrollmentsByEmail(ctx context.Context, email string) ([]domain.EnrollmentView, error)
	// ListEnrollments は全受講登録を講座名付きで返す。
	ListEnrollments(ctx context.Context) ([]domain.EnrollmentView, error)
	// UpdateEnrollmentStatus はステータスを書き換える。存在しない場合ErrNotFound。
	UpdateEnrollmentStatus(ctx context.Context, id, status string) error
}

// Store はAPIサーバーが利用する永続化層全体。
type Store interface {
	CourseRepository
	EnrollmentRepository
	// Ping は接続先が応答するかを確認する。
	Ping(ctx context.Context) error
	// Close は接続を解放する。
	Close() error
}
