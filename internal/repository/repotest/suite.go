// Package repotest はrepository.Storeの実装に共通するテストを提供する。
// 各ドライバのテストから Run を呼び出して使う。
package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/kursus/internal/domain"
	"github.com/nao1215/kursus/internal/repository"
)

// Factory は空のデータベースに接続したStoreを返す。
type Factory func(t *testing.T) repository.Store

// Run はStoreの実装が満たすべき振る舞いを検証する。
// サブテストごとにfactoryを呼び出すため、factoryは毎回空の状態を返すこと。
func Run(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("講座を作成すると作成日時の降順で一覧に並ぶこと", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		first := mustCreateCourse(t, s, domain.CourseInput{Title: "Bahasa A1", Level: "pemula", Price: 0})
		second := mustCreateCourse(t, s, domain.CourseInput{Title: "Bahasa A2", Level: "menengah", Price: 150000, ImageURL: "https://example.com/a2.png"})

		courses, err := s.ListCourses(ctx)
		if err != nil {
			t.Fatalf("ListCourses()でエラーが発生: %v", err)
		}
		if len(courses) != 2 {
			t.Fatalf("講座数 = %d, want 2", len(courses))
		}
		if courses[0].ID != second.ID || courses[1].ID != first.ID {
			t.Errorf("並び順 = [%s, %s], want [%s, %s]", courses[0].Title, courses[1].Title, second.Title, first.Title)
		}
		if courses[0].Price != 150000 {
			t.Errorf("Price = %v, want 150000", courses[0].Price)
		}
		if courses[0].ImageURL != "https://example.com/a2.png" {
			t.Errorf("ImageURL = %q", courses[0].ImageURL)
		}
		if courses[0].CreatedAt.IsZero() {
			t.Error("CreatedAtが設定されていない")
		}
	})

	t.Run("講座がない場合は空のスライスが返ること", func(t *testing.T) {
		s := factory(t)

		courses, err := s.ListCourses(context.Background())
		if err != nil {
			t.Fatalf("ListCourses()でエラーが発生: %v", err)
		}
		if courses == nil || len(courses) != 0 {
			t.Errorf("courses = %#v, want empty slice", courses)
		}
	})

	t.Run("存在しない講座の取得はErrNotFoundになること", func(t *testing.T) {
		s := factory(t)

		_, err := s.GetCourse(context.Background(), "missing")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("部分更新では指定したフィールドだけが変わること", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		c := mustCreateCourse(t, s, domain.CourseInput{Title: "Bahasa A1", Description: "dasar", Level: "pemula", Price: 100})

		title := "Bahasa A1 (revisi)"
		price := 0.0
		if err := s.UpdateCourse(ctx, c.ID, domain.CoursePatch{Title: &title, Price: &price}); err != nil {
			t.Fatalf("UpdateCourse()でエラーが発生: %v", err)
		}

		got, err := s.GetCourse(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetCourse()でエラーが発生: %v", err)
		}
		if got.Title != title {
			t.Errorf("Title = %q, want %q", got.Title, title)
		}
		if got.Price != 0 {
			t.Errorf("Price = %v, want 0", got.Price)
		}
		if got.Description != "dasar" || got.Level != "pemula" {
			t.Errorf("未指定のフィールドが変更された: %+v", got)
		}
	})

	t.Run("存在しない講座の更新と削除はErrNotFoundになること", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		title := "x"
		if err := s.UpdateCourse(ctx, "missing", domain.CoursePatch{Title: &title}); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("UpdateCourse err = %v, want ErrNotFound", err)
		}
		if err := s.UpdateCourse(ctx, "missing", domain.CoursePatch{}); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("空のUpdateCourse err = %v, want ErrNotFound", err)
		}
		if err := s.DeleteCourse(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("DeleteCourse err = %v, want ErrNotFound", err)
		}
	})

	t.Run("講座を削除すると受講登録も消えること", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		c := mustCreateCourse(t, s, domain.CourseInput{Title: "Bahasa A1"})
		mustEnroll(t, s, c.ID, "budi@example.com")

		if err := s.DeleteCourse(ctx, c.ID); err != nil {
			t.Fatalf("DeleteCourse()でエラーが発生: %v", err)
		}
		if _, err := s.GetCourse(ctx, c.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("削除後のGetCourse err = %v, want ErrNotFound", err)
		}
		all, err := s.ListEnrollments(ctx)
		if err != nil {
			t.Fatalf("ListEnrollments()でエラーが発生: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("受講登録数 = %d, want 0", len(all))
		}
	})

	t.Run("同じ講座とメールアドレスの2回目の登録はErrAlreadyEnrolledになること", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		c := mustCreateCourse(t, s, domain.CourseInput{Title: "Bahasa A1"})
		e := mustEnroll(t, s, c.ID, "budi@example.com")
		if e.Status != domain.StatusRegistered {
			t.Errorf("Status = %q, want %q", e.Status, domain.StatusRegistered)
		}

		_, err := s.CreateEnrollment(ctx, c.ID, "budi@example.com", domain.StatusRegistered)
		if !errors.Is(err, repository.ErrAlreadyEnrolled) {
			t.Errorf("err = %v, want ErrAlreadyEnrolled", err)
		}

		// 別ユーザーは同じ講座に登録できる
		mustEnroll(t, s, c.ID, "sari@example.com")
	})

	t.Run("受講登録を講座名付きで検索できること", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		c := mustCreateCourse(t, s, domain.CourseInput{Title: "Bahasa A1"})
		e := mustEnroll(t, s, c.ID, "budi@example.com")

		got, err := s.FindEnrollment(ctx, c.ID, "budi@example.com")
		if err != nil {
			t.Fatalf("FindEnrollment()でエラーが発生: %v", err)
		}
		if got.ID != e.ID {
			t.Errorf("ID = %q, want %q", got.ID, e.ID)
		}
		if got.CourseTitle != "Bahasa A1" {
			t.Errorf("CourseTitle = %q, want %q", got.CourseTitle, "Bahasa A1")
		}

		if _, err := s.FindEnrollment(ctx, c.ID, "other@example.com"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("未登録ユーザーのFindEnrollment err = %v, want ErrNotFound", err)
		}
	})

	t.Run("メールアドレスで受講登録を絞り込めること", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		a1 := mustCreateCourse(t, s, domain.CourseInput{Title: "Bahasa A1"})
		a2 := mustCreateCourse(t, s, domain.CourseInput{Title: "Bahasa A2"})
		mustEnroll(t, s, a1.ID, "budi@example.com")
		mustEnroll(t, s, a2.ID, "budi@example.com")
		mustEnroll(t, s, a1.ID, "sari@example.com")

		mine, err := s.ListEnrollmentsByEmail(ctx, "budi@example.com")
		if err != nil {
			t.Fatalf("ListEnrollmentsByEmail()でエラーが発生: %v", err)
		}
		if len(mine) != 2 {
			t.Fatalf("受講登録数 = %d, want 2", len(mine))
		}
		titles := map[string]bool{}
		for _, v := range mine {
			if v.UserEmail != "budi@example.com" {
				t.Errorf("他ユーザーの受講登録が含まれている: %q", v.UserEmail)
			}
			titles[v.CourseTitle] = true
		}
		if !titles["Bahasa A1"] || !titles["Bahasa A2"] {
			t.Errorf("講座名 = %v", titles)
		}

		all, err := s.ListEnrollments(ctx)
		if err != nil {
			t.Fatalf("ListEnrollments()でエラーが発生: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("全受講登録数 = %d, want 3", len(all))
		}
	})

	t.Run("ステータスは任意の文字列に更新できること", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		c := mustCreateCourse(t, s, domain.CourseInput{Title: "Bahasa A1"})
		e := mustEnroll(t, s, c.ID, "budi@example.com")

		for _, status := range []string{domain.StatusPassed, "menunggu-ujian"} {
			if err := s.UpdateEnrollmentStatus(ctx, e.ID, status); err != nil {
				t.Fatalf("UpdateEnrollmentStatus(%q)でエラーが発生: %v", status, err)
			}
			got, err := s.FindEnrollment(ctx, c.ID, "budi@example.com")
			if err != nil {
				t.Fatalf("FindEnrollment()でエラーが発生: %v", err)
			}
			if got.Status != status {
				t.Errorf("Status = %q, want %q", got.Status, status)
			}
		}

		if err := s.UpdateEnrollmentStatus(ctx, "missing", domain.StatusPassed); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("Pingが成功すること", func(t *testing.T) {
		s := factory(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping()でエラーが発生: %v", err)
		}
	})
}

func mustCreateCourse(t *testing.T, s repository.Store, in domain.CourseInput) domain.Course {
	t.Helper()
	c, err := s.CreateCourse(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateCourse()でエラーが発生: %v", err)
	}
	if c.ID == "" {
		t.Fatal("作成した講座のIDが空")
	}
	return c
}

func mustEnroll(t *testing.T, s repository.Store, courseID, email string) domain.Enrollment {
	t.Helper()
	e, err := s.CreateEnrollment(context.Background(), courseID, email, domain.StatusRegistered)
	if err != nil {
		t.Fatalf("CreateEnrollment()でエラーが発生: %v", err)
	}
	return e
}
