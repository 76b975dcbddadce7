package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kursus/internal/domain"
	"github.com/nao1215/kursus/internal/repository"
)

// msgAlreadyEnrolled は登録済みの講座に再度登録しようとした場合のメッセージ。
const msgAlreadyEnrolled = "Sudah terdaftar"

// enrollRequest は受講登録リクエストのボディ。course_idは数値でも文字列でもよい。
type enrollRequest struct {
	CourseID domain.FlexibleID `json:"course_id"`
}

// myEnrollmentResponse は自分の受講登録一覧の1件。
type myEnrollmentResponse struct {
	CourseID    string `json:"course_id"`
	CourseTitle string `json:"course_title"`
	Status      string `json:"status"`
}

// enrollmentResponse は管理者向け受講登録一覧の1件。
type enrollmentResponse struct {
	ID          string `json:"id"`
	UserEmail   string `json:"user_email"`
	CourseTitle string `json:"course_title"`
	Status      string `json:"status"`
}

// statusRequest はステータス更新リクエストのボディ。
type statusRequest struct {
	Status string `json:"status"`
}

// handleEnroll は呼び出し元を講座に受講登録するハンドラを返す。
// 同じ講座への2回目の登録は400になる。
func (s *Server) handleEnroll() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}

		var req enrollRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, fmt.Sprintf("Permintaan tidak valid: %v", err))
			return
		}
		courseID := string(req.CourseID)
		if courseID == "" {
			respondMessage(c, http.StatusBadRequest, "course_id wajib diisi")
			return
		}

		ctx := c.Request.Context()
		_, err := s.store.FindEnrollment(ctx, courseID, p.Email)
		if err == nil {
			respondMessage(c, http.StatusBadRequest, msgAlreadyEnrolled)
			return
		}
		if !errors.Is(err, repository.ErrNotFound) {
			respondError(c, "受講登録の確認", err)
			return
		}

		if _, err := s.store.GetCourse(ctx, courseID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				respondMessage(c, http.StatusNotFound, "Kursus tidak ditemukan")
				return
			}
			respondError(c, "講座の取得", err)
			return
		}

		// 確認から挿入までの間に別リクエストが登録した場合も一意制約で弾かれる
		enrollment, err := s.store.CreateEnrollment(ctx, courseID, p.Email, domain.StatusRegistered)
		if errors.Is(err, repository.ErrAlreadyEnrolled) {
			respondMessage(c, http.StatusBadRequest, msgAlreadyEnrolled)
			return
		}
		if err != nil {
			respondError(c, "受講登録", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":    "Berhasil mendaftar",
			"enrollment": enrollment,
		})
	}
}

// handleMyEnrollments は呼び出し元の受講登録を講座名付きで返すハンドラを返す。
func (s *Server) handleMyEnrollments() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}

		views, err := s.store.ListEnrollmentsByEmail(c.Request.Context(), p.Email)
		if err != nil {
			respondError(c, "受講登録一覧の取得", err)
			return
		}

		responses := make([]myEnrollmentResponse, 0, len(views))
		for _, v := range views {
			responses = append(responses, myEnrollmentResponse{
				CourseID:    v.CourseID,
				CourseTitle: v.CourseTitle,
				Status:      v.Status,
			})
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleListEnrollments は全受講登録を返すハンドラを返す。
func (s *Server) handleListEnrollments() gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := s.store.ListEnrollments(c.Request.Context())
		if err != nil {
			respondError(c, "受講登録一覧の取得", err)
			return
		}

		responses := make([]enrollmentResponse, 0, len(views))
		for _, v := range views {
			responses = append(responses, enrollmentResponse{
				ID:          v.ID,
				UserEmail:   v.UserEmail,
				CourseTitle: v.CourseTitle,
				Status:      v.Status,
			})
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleUpdateEnrollmentStatus は受講登録のステータスを更新するハンドラを返す。
// ステータスは空でない任意の文字列を受け付ける。
func (s *Server) handleUpdateEnrollmentStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, fmt.Sprintf("Permintaan tidak valid: %v", err))
			return
		}
		if strings.TrimSpace(req.Status) == "" {
			respondMessage(c, http.StatusBadRequest, "status wajib diisi")
			return
		}

		err := s.store.UpdateEnrollmentStatus(c.Request.Context(), c.Param("id"), req.Status)
		if errors.Is(err, repository.ErrNotFound) {
			respondMessage(c, http.StatusNotFound, "Pendaftaran tidak ditemukan")
			return
		}
		if err != nil {
			respondError(c, "ステータスの更新", err)
			return
		}
		respondMessage(c, http.StatusOK, "Status updated")
	}
}
