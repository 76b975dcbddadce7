// Package sqlite はSQLiteファイルを使うrepository.Storeの実装を提供する。
// ローカル開発とハンドラのテストで使用する。
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nao1215/kursus/db"
	"github.com/nao1215/kursus/internal/domain"
	"github.com/nao1215/kursus/internal/repository"
	"github.com/nao1215/kursus/pkg/migration"
)

// timeLayout は作成日時の保存形式。固定長にして文字列比較で並び替えられるようにする。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store はSQLiteによるrepository.Storeの実装。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// now は作成日時の取得に使う時計。
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// OpenDB はpathのSQLiteファイルを外部キー制約を有効にして開く。マイグレーションは行わない。
func OpenDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	return sqlDB, nil
}

// Option はOpenの動作を変更する。
type Option func(*openOptions)

type openOptions struct {
	migrate bool
}

// WithMigration は起動時に埋め込みマイグレーションを適用するかを指定する。デフォルトは適用する。
func WithMigration(on bool) Option {
	return func(o *openOptions) {
		o.migrate = on
	}
}

// Open はpathのSQLiteファイルを開き、埋め込みマイグレーションを適用する。
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	o := openOptions{migrate: true}
	for _, opt := range opts {
		opt(&o)
	}

	sqlDB, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if !o.migrate {
		return &Store{db: sqlDB, now: time.Now}, nil
	}

	if err := migration.Up(ctx, sqlDB, migration.DialectSQLite, db.Migrations, "migrations/sqlite"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	return &Store{db: sqlDB, now: time.Now}, nil
}

// DB は内部の接続を返す。マイグレーションCLIで使用する。
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping は接続先が応答するかを確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close は接続を解放する。
func (s *Store) Close() error {
	return s.db.Close()
}

// ListCourses は全講座を作成日時の降順で返す。
func (s *Store) ListCourses(ctx context.Context) ([]domain.Course, error) {
	const query = `SELECT id, title, description, level, price, image_url, created_at
		FROM courses ORDER BY created_at DESC, rowid DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	courses := make([]domain.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetCourse はIDで講座を取得する。
func (s *Store) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	const query = `SELECT id, title, description, level, price, image_url, created_at
		FROM courses WHERE id = ?`
	c, err := scanCourse(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Course{}, repository.ErrNotFound
	}
	return c, err
}

// CreateCourse は講座を作成する。
func (s *Store) CreateCourse(ctx context.Context, in domain.CourseInput) (domain.Course, error) {
	c := domain.Course{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Level:       in.Level,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		CreatedAt:   s.now().UTC(),
	}
	const query = `INSERT INTO courses (id, title, description, level, price, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.Title, c.Description, c.Level, c.Price, c.ImageURL, c.CreatedAt.Format(timeLayout)); err != nil {
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
		sets = append(sets, column+" = ?")
		args = append(args, v)
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
		// 変更がない場合も存在確認だけは行う
		_, err := s.GetCourse(ctx, id)
		return err
	}

	args = append(args, id)
	query := "UPDATE courses SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// DeleteCourse は講座を削除する。受講登録は外部キーで連鎖削除される。
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// FindEnrollment は講座とメールアドレスの組で受講登録を探す。
func (s *Store) FindEnrollment(ctx context.Context, courseID, email string) (domain.EnrollmentView, error) {
	const query = `SELECT e.id, e.course_id, e.user_email, e.status, e.created_at, COALESCE(c.title, '')
		FROM enrollments e LEFT JOIN courses c ON c.id = e.course_id
		WHERE e.course_id = ? AND e.user_email = ?`
	v, err := scanEnrollmentView(s.db.QueryRowContext(ctx, query, courseID, email))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EnrollmentView{}, repository.ErrNotFound
	}
	return v, err
}

// CreateEnrollment は組が未登録の場合のみ受講登録を挿入する。
func (s *Store) CreateEnrollment(ctx context.Context, courseID, email, status string) (domain.Enrollment, error) {
	e := domain.Enrollment{
		ID:        uuid.New().String(),
		CourseID:  courseID,
		UserEmail: email,
		Status:    status,
		CreatedAt: s.now().UTC(),
	}
	const query = `INSERT INTO enrollments (id, course_id, user_email, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (course_id, user_email) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query, e.ID, e.CourseID, e.UserEmail, e.Status, e.CreatedAt.Format(timeLayout))
	if err != nil {
		return domain.Enrollment{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Enrollment{}, err
	}
	if n == 0 {
		return domain.Enrollment{}, repository.ErrAlreadyEnrolled
	}
	return e, nil
}

// ListEnrollmentsByEmail は指定ユーザーの受講登録を返す。
func (s *Store) ListEnrollmentsByEmail(ctx context.Context, email string) ([]domain.EnrollmentView, error) {
	const query = `SELECT e.id, e.course_id, e.user_email, e.status, e.created_at, COALESCE(c.title, '')
		FROM enrollments e LEFT JOIN courses c ON c.id = e.course_id
		WHERE e.user_email = ?
		ORDER BY e.created_at DESC, e.rowid DESC`
	return s.queryEnrollmentViews(ctx, query, email)
}

// ListEnrollments は全受講登録を返す。
func (s *Store) ListEnrollments(ctx context.Context) ([]domain.EnrollmentView, error) {
	const query = `SELECT e.id, e.course_id, e.user_email, e.status, e.created_at, COALESCE(c.title, '')
		FROM enrollments e LEFT JOIN courses c ON c.id = e.course_id
		ORDER BY e.created_at DESC, e.rowid DESC`
	return s.queryEnrollmentViews(ctx, query)
}

// UpdateEnrollmentStatus はステータスを書き換える。値の検証は行わない。
func (s *Store) UpdateEnrollmentStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE enrollments SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) queryEnrollmentViews(ctx context.Context, query string, args ...any) ([]domain.EnrollmentView, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	views := make([]domain.EnrollmentView, 0)
	for rows.Next() {
		v, err := scanEnrollmentView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// scanner は*sql.Rowと*sql.Rowsの共通部分。
type scanner interface {
	Scan(dest ...any) error
}

func scanCourse(row scanner) (domain.Course, error) {
	var (
		c         domain.Course
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Level, &c.Price, &c.ImageURL, &createdAt); err != nil {
		return domain.Course{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return domain.Course{}, fmt.Errorf("作成日時の解析に失敗: %w", err)
	}
	c.CreatedAt = t
	return c, nil
}

func scanEnrollmentView(row scanner) (domain.EnrollmentView, error) {
	var (
		v         domain.EnrollmentView
		createdAt string
	)
	if err := row.Scan(&v.ID, &v.CourseID, &v.UserEmail, &v.Status, &createdAt, &v.CourseTitle); err != nil {
		return domain.EnrollmentView{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return domain.EnrollmentView{}, fmt.Errorf("作成日時の解析に失敗: %w", err)
	}
	v.CreatedAt = t
	return v, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
