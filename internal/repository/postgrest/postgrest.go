// Package postgrest はホスト型データベースのREST API（PostgREST）を使う
// repository.Storeの実装を提供する。
//
// 行レベルセキュリティを迂回するため特権キー（service role key）で呼び出す。
// フィルタはPostgRESTのクエリ構文（id=eq.xxx など）で組み立てる。
package postgrest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/kursus/internal/domain"
	"github.com/nao1215/kursus/internal/repository"
	"github.com/nao1215/kursus/pkg/httpclient"
)

const (
	coursesPath     = "/rest/v1/courses"
	enrollmentsPath = "/rest/v1/enrollments"

	// enrollmentSelect は講座名を埋め込んだ受講登録の取得列。
	enrollmentSelect = "id,course_id,user_email,status,created_at,courses(title)"
)

// Store はPostgRESTによるrepository.Storeの実装。
type Store struct {
	client *httpclient.Client
}

var _ repository.Store = (*Store)(nil)

// New はbaseURLのREST APIに特権キーで接続するStoreを生成する。
func New(baseURL, serviceKey string) *Store {
	return &Store{
		client: httpclient.New(baseURL,
			httpclient.WithHeader("apikey", serviceKey),
			httpclient.WithHeader("Authorization", "Bearer "+serviceKey),
		),
	}
}

// Ping は講座テーブルを1件だけ参照して疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")
	var rows []map[string]any
	return s.client.GetJSON(ctx, coursesPath+"?"+q.Encode(), &rows)
}

// Close は何もしない。HTTPクライアントは接続を保持し続けない。
func (s *Store) Close() error {
	return nil
}

// courseRow はcoursesテーブルの行。IDは数値列でも文字列列でもよい。
type courseRow struct {
	ID          domain.FlexibleID `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Level       string            `json:"level"`
	Price       float64           `json:"price"`
	ImageURL    string            `json:"image_url"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (r courseRow) toDomain() domain.Course {
	return domain.Course{
		ID:          string(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Level:       r.Level,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
	}
}

// enrollmentRow はcoursesを埋め込んだenrollmentsテーブルの行。
type enrollmentRow struct {
	ID        domain.FlexibleID `json:"id"`
	CourseID  domain.FlexibleID `json:"course_id"`
	UserEmail string            `json:"user_email"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Courses   *struct {
		Title string `json:"title"`
	} `json:"courses"`
}

func (r enrollmentRow) toDomain() domain.Enrollment {
	return domain.Enrollment{
		ID:        string(r.ID),
		CourseID:  string(r.CourseID),
		UserEmail: r.UserEmail,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func (r enrollmentRow) toView() domain.EnrollmentView {
	v := domain.EnrollmentView{Enrollment: r.toDomain()}
	if r.Courses != nil {
		v.CourseTitle = r.Courses.Title
	}
	return v
}

// returnRepresentation は書き込み後の行を返させるヘッダー。
func returnRepresentation() http.Header {
	h := http.Header{}
	h.Set("Prefer", "return=representation")
	return h
}

// ListCourses は全講座を作成日時の降順で返す。
func (s *Store) ListCourses(ctx context.Context) ([]domain.Course, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var rows []courseRow
	if err := s.client.GetJSON(ctx, coursesPath+"?"+q.Encode(), &rows); err != nil {
		return nil, err
	}
	courses := make([]domain.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toDomain())
	}
	return courses, nil
}

// GetCourse はIDで講座を取得する。
func (s *Store) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	var rows []courseRow
	if err := s.client.GetJSON(ctx, coursesPath+"?"+q.Encode(), &rows); err != nil {
		return domain.Course{}, err
	}
	if len(rows) == 0 {
		return domain.Course{}, repository.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// CreateCourse は講座を作成し、保存された行を返す。IDの採番はデータベースに任せる。
func (s *Store) CreateCourse(ctx context.Context, in domain.CourseInput) (domain.Course, error) {
	body := map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"level":       in.Level,
		"price":       in.Price,
		"image_url":   in.ImageURL,
	}
	var rows []courseRow
	if err := s.client.Do(ctx, http.MethodPost, coursesPath, returnRepresentation(), body, &rows); err != nil {
		return domain.Course{}, err
	}
	if len(rows) == 0 {
		return domain.Course{}, errors.New("作成した講座が返されませんでした")
	}
	return rows[0].toDomain(), nil
}

// UpdateCourse はpatchで指定されたフィールドのみ更新する。
func (s *Store) UpdateCourse(ctx context.Context, id string, patch domain.CoursePatch) error {
	if patch.IsEmpty() {
		_, err := s.GetCourse(ctx, id)
		return err
	}

	body := map[string]any{}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.Level != nil {
		body["level"] = *patch.Level
	}
	if patch.Price != nil {
		body["price"] = *patch.Price
	}
	if patch.ImageURL != nil {
		body["image_url"] = *patch.ImageURL
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	var rows []courseRow
	if err := s.client.Do(ctx, http.MethodPatch, coursesPath+"?"+q.Encode(), returnRepresentation(), body, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteCourse は講座を削除する。
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	var rows []courseRow
	if err := s.client.Do(ctx, http.MethodDelete, coursesPath+"?"+q.Encode(), returnRepresentation(), nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindEnrollment は講座とメールアドレスの組で受講登録を探す。
func (s *Store) FindEnrollment(ctx context.Context, courseID, email string) (domain.EnrollmentView, error) {
	q := url.Values{}
	q.Set("select", enrollmentSelect)
	q.Set("course_id", "eq."+courseID)
	q.Set("user_email", "eq."+email)
	q.Set("limit", "1")

	var rows []enrollmentRow
	if err := s.client.GetJSON(ctx, enrollmentsPath+"?"+q.Encode(), &rows); err != nil {
		return domain.EnrollmentView{}, err
	}
	if len(rows) == 0 {
		return domain.EnrollmentView{}, repository.ErrNotFound
	}
	return rows[0].toView(), nil
}

// CreateEnrollment は組が未登録の場合のみ挿入する。
// 一意インデックスとの競合は無視させ、空配列が返った場合を登録済みとして扱う。
func (s *Store) CreateEnrollment(ctx context.Context, courseID, email, status string) (domain.Enrollment, error) {
	q := url.Values{}
	q.Set("on_conflict", "course_id,user_email")

	h := http.Header{}
	h.Set("Prefer", "return=representation,resolution=ignore-duplicates")

	body := map[string]any{
		"course_id":  courseID,
		"user_email": email,
		"status":     status,
	}
	var rows []enrollmentRow
	if err := s.client.Do(ctx, http.MethodPost, enrollmentsPath+"?"+q.Encode(), h, body, &rows); err != nil {
		return domain.Enrollment{}, err
	}
	if len(rows) == 0 {
		return domain.Enrollment{}, repository.ErrAlreadyEnrolled
	}
	return rows[0].toDomain(), nil
}

// ListEnrollmentsByEmail は指定ユーザーの受講登録を返す。
func (s *Store) ListEnrollmentsByEmail(ctx context.Context, email string) ([]domain.EnrollmentView, error) {
	q := url.Values{}
	q.Set("user_email", "eq."+email)
	return s.listEnrollments(ctx, q)
}

// ListEnrollments は全受講登録を返す。
func (s *Store) ListEnrollments(ctx context.Context) ([]domain.EnrollmentView, error) {
	return s.listEnrollments(ctx, url.Values{})
}

func (s *Store) listEnrollments(ctx context.Context, q url.Values) ([]domain.EnrollmentView, error) {
	q.Set("select", enrollmentSelect)
	q.Set("order", "created_at.desc")

	var rows []enrollmentRow
	if err := s.client.GetJSON(ctx, enrollmentsPath+"?"+q.Encode(), &rows); err != nil {
		return nil, err
	}
	views := make([]domain.EnrollmentView, 0, len(rows))
	for _, r := range rows {
		views = append(views, r.toView())
	}
	return views, nil
}

// UpdateEnrollmentStatus はステータスを書き換える。値の検証は行わない。
func (s *Store) UpdateEnrollmentStatus(ctx context.Context, id, status string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	var rows []enrollmentRow
	if err := s.client.Do(ctx, http.MethodPatch, enrollmentsPath+"?"+q.Encode(), returnRepresentation(), map[string]string{"status": status}, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}
