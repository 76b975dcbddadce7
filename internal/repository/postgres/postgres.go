// Package postgres はPostgreSQLに直接接続するrepository.Storeの実装を提供する。
// ホスト型データベースの接続文字列（DATABASE_URL）をそのまま使う。
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nao1215/kursus/db"
	"github.com/nao1215/kursus/internal/domain"
	"github.com/nao1215/kursus/internal/repository"
	"github.com/nao1215/kursus/pkg/migration"
)

// Store はpgxpoolによるrepository.Storeの実装。
type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

// New は既存のコネクションプールからStoreを生成する。
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open はdsnに接続してStoreを生成する。
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	return New(pool), nil
}

// Migrate は埋め込みマイグレーションを適用する。
// gooseはdatabase/sqlを要求するため、pgxのstdlibドライバで別接続を開く。
func Migrate(ctx context.Context, dsn string) error {
	sqlDB, err := OpenSQL(dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return migration.Up(ctx, sqlDB, migration.DialectPostgres, db.Migrations, "migrations/postgres")
}

// OpenSQL はpgxのstdlibドライバでdatabase/sqlの接続を開く。
func OpenSQL(dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("SQL接続のオープンに失敗: %w", err)
	}
	return sqlDB, nil
}

// Ping は接続先が応答するかを確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close はコネクションプールを閉じる。
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ListCourses は全講座を作成日時の降順で返す。
func (s *Store) ListCourses(ctx context.Context) ([]domain.Course, error) {
	const query = `SELECT id, title, description, level, price, image_url, created_at
		FROM courses ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := make([]domain.Course, 0)
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Level, &c.Price, &c.ImageURL, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetCourse はIDで講座を取得する。
func (s *Store) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	const query = `SELECT id, title, description, level, price, image_url, created_at
		FROM courses WHERE id = $1`
	var c domain.Course
	err := s.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Title, &c.Description, &c.Level, &c.Price, &c.ImageURL, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Course{}, repository.ErrNotFound
		}
		return domain.Course{}, err
	}
	return c, nil
}

// CreateCourse は講座を作成し、保存された行を返す。
func (s *Store) CreateCourse(ctx context.Context, in domain.CourseInput) (domain.Course, error) {
	const query = `INSERT INTO courses (id, title, description, level, price, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, title, description, level, price, image_url, created_at`
	var c domain.Course
	err := s.pool.QueryRow(ctx, query, uuid.New().String(), in.Title, in.Description, in.Level, in.Price, in.ImageURL).
		Scan(&c.ID, &c.Title, &c.Description, &c.Level, &c.Price, &c.ImageURL, &c.CreatedAt)
	if err != nil {
		return domain.Course{}, err
	}
	return c, nil
}

// UpdateCourse はpatchで指定されたフィールドのみ更新する。
func (s *Store) UpdateCourse(ctx context.Context, id string, patch domain.CoursePatch) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Level != nil {
		add("level", *patch.Level)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}

	if len(sets) == 0 {
		_, err := s.GetCourse(ctx, id)
		return err
	}

	args = append(args, id)
	query := "UPDATE courses SET " + strings.Join(sets, ", ") + " WHERE id = $" + strconv.Itoa(len(args))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteCourse は講座を削除する。受講登録は外部キーで連鎖削除される。
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

const enrollmentViewColumns = `e.id, e.course_id, e.user_email, e.status, e.created_at, COALESCE(c.title, '')`

// FindEnrollment は講座とメールアドレスの組で受講登録を探す。
func (s *Store) FindEnrollment(ctx context.Context, courseID, email string) (domain.EnrollmentView, error) {
	query := `SELECT ` + enrollmentViewColumns + `
		FROM enrollments e LEFT JOIN courses c ON c.id = e.course_id
		WHERE e.course_id = $1 AND e.user_email = $2`
	var v domain.EnrollmentView
	err := s.pool.QueryRow(ctx, query, courseID, email).Scan(&v.ID, &v.CourseID, &v.UserEmail, &v.Status, &v.CreatedAt, &v.CourseTitle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EnrollmentView{}, repository.ErrNotFound
		}
		return domain.EnrollmentView{}, err
	}
	return v, nil
}

// CreateEnrollment は組が未登録の場合のみ挿入する。
// 競合時はRETURNINGが行を返さないため、ErrNoRowsを登録済みとして扱う。
func (s *Store) CreateEnrollment(ctx context.Context, courseID, email, status string) (domain.Enrollment, error) {
	const query = `INSERT INTO enrollments (id, course_id, user_email, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (course_id, user_email) DO NOTHING
		RETURNING id, course_id, user_email, status, created_at`
	var e domain.Enrollment
	err := s.pool.QueryRow(ctx, query, uuid.New().String(), courseID, email, status).
		Scan(&e.ID, &e.CourseID, &e.UserEmail, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Enrollment{}, repository.ErrAlreadyEnrolled
		}
		return domain.Enrollment{}, err
	}
	return e, nil
}

// ListEnrollmentsByEmail は指定ユーザーの受講登録を返す。
func (s *Store) ListEnrollmentsByEmail(ctx context.Context, email string) ([]domain.EnrollmentView, error) {
	query := `SELECT ` + enrollmentViewColumns + `
		FROM enrollments e LEFT JOIN courses c ON c.id = e.course_id
		WHERE e.user_email = $1
		ORDER BY e.created_at DESC`
	return s.queryEnrollmentViews(ctx, query, email)
}

// ListEnrollments は全受講登録を返す。
func (s *Store) ListEnrollments(ctx context.Context) ([]domain.EnrollmentView, error) {
	query := `SELECT ` + enrollmentViewColumns + `
		FROM enrollments e LEFT JOIN courses c ON c.id = e.course_id
		ORDER BY e.created_at DESC`
	return s.queryEnrollmentViews(ctx, query)
}

// UpdateEnrollmentStatus はステータスを書き換える。値の検証は行わない。
func (s *Store) UpdateEnrollmentStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE enrollments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) queryEnrollmentViews(ctx context.Context, query string, args ...any) ([]domain.EnrollmentView, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]domain.EnrollmentView, 0)
	for rows.Next() {
		var v domain.EnrollmentView
		if err := rows.Scan(&v.ID, &v.CourseID, &v.UserEmail, &v.Status, &v.CreatedAt, &v.CourseTitle); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
