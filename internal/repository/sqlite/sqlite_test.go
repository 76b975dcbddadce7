package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/kursus/internal/domain"
	"github.com/nao1215/kursus/internal/repository"
	"github.com/nao1215/kursus/internal/repository/repotest"
)

// openTestStore は一時ディレクトリのSQLiteファイルでStoreを開く。
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open()でエラーが発生: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestStore はSQLite実装が共通の振る舞いを満たすことを検証する。
func TestStore(t *testing.T) {
	t.Parallel()

	repotest.Run(t, func(t *testing.T) repository.Store {
		return openTestStore(t)
	})
}

// TestOpen はマイグレーションが冪等に適用されることを検証する。
func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("1回目のOpen()でエラーが発生: %v", err)
	}
	if _, err := s.CreateCourse(ctx, domain.CourseInput{Title: "Bahasa A1"}); err != nil {
		t.Fatalf("CreateCourse()でエラーが発生: %v", err)
	}
	_ = s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("2回目のOpen()でエラーが発生: %v", err)
	}
	defer s.Close()

	courses, err := s.ListCourses(ctx)
	if err != nil {
		t.Fatalf("ListCourses()でエラーが発生: %v", err)
	}
	if len(courses) != 1 {
		t.Errorf("講座数 = %d, want 1", len(courses))
	}
}

// TestOpenWithoutMigration はマイグレーションを無効にした場合にスキーマを変更しないことを検証する。
func TestOpenWithoutMigration(t *testing.T) {
	t.Parallel()

	t.Run("空のファイルではテーブルが作成されないこと", func(t *testing.T) {
		t.Parallel()

		s, err := Open(context.Background(), filepath.Join(t.TempDir(), "empty.db"), WithMigration(false))
		if err != nil {
			t.Fatalf("Open()でエラーが発生: %v", err)
		}
		defer s.Close()

		if _, err := s.ListCourses(context.Background()); err == nil {
			t.Fatal("テーブルがないためListCourses()はエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("適用済みのファイルはそのまま使えること", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "migrated.db")
		ctx := context.Background()

		s, err := Open(ctx, path)
		if err != nil {
			t.Fatalf("Open()でエラーが発生: %v", err)
		}
		_ = s.Close()

		s, err = Open(ctx, path, WithMigration(false))
		if err != nil {
			t.Fatalf("Open(WithMigration(false))でエラーが発生: %v", err)
		}
		defer s.Close()

		if _, err := s.CreateCourse(ctx, domain.CourseInput{Title: "Bahasa A1"}); err != nil {
			t.Errorf("CreateCourse()でエラーが発生: %v", err)
		}
	})
}

// TestCreatedAt は作成日時が時計から設定されることを検証する。
func TestCreatedAt(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	fixed := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	c, err := s.CreateCourse(context.Background(), domain.CourseInput{Title: "Bahasa A1"})
	if err != nil {
		t.Fatalf("CreateCourse()でエラーが発生: %v", err)
	}
	got, err := s.GetCourse(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCourse()でエラーが発生: %v", err)
	}
	if !got.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, fixed)
	}
}
