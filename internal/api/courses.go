package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kursus/internal/domain"
	"github.com/nao1215/kursus/internal/repository"
)

// courseRequest は講座作成リクエストのボディ。
// priceは数値でも文字列でもよく、解釈できない場合は0になる。
type courseRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Level       string       `json:"level"`
	Price       domain.Price `json:"price"`
	ImageURL    string       `json:"image_url"`
}

// coursePatchRequest は講座更新リクエストのボディ。含まれるフィールドだけを変更する。
type coursePatchRequest struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Level       *string       `json:"level"`
	Price       *domain.Price `json:"price"`
	ImageURL    *string       `json:"image_url"`
}

func (r coursePatchRequest) toPatch() domain.CoursePatch {
	patch := domain.CoursePatch{
		Title:       r.Title,
		Description: r.Description,
		Level:       r.Level,
		ImageURL:    r.ImageURL,
	}
	if r.Price != nil {
		price := float64(*r.Price)
		patch.Price = &price
	}
	return patch
}

// handleListCourses は講座一覧を作成日時の降順で返すハンドラを返す。
func (s *Server) handleListCourses() gin.HandlerFunc {
	return func(c *gin.Context) {
		courses, err := s.store.ListCourses(c.Request.Context())
		if err != nil {
			respondError(c, "講座一覧の取得", err)
			return
		}
		c.JSON(http.StatusOK, courses)
	}
}

// handleCreateCourse は講座を作成するハンドラを返す。
func (s *Server) handleCreateCourse() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req courseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, fmt.Sprintf("Permintaan tidak valid: %v", err))
			return
		}

		course, err := s.store.CreateCourse(c.Request.Context(), domain.CourseInput{
			Title:       req.Title,
			Description: req.Description,
			Level:       req.Level,
			Price:       float64(req.Price),
			ImageURL:    req.ImageURL,
		})
		if err != nil {
			respondError(c, "講座の作成", err)
			return
		}
		c.JSON(http.StatusCreated, course)
	}
}

// handleUpdateCourse は講座を部分更新するハンドラを返す。
func (s *Server) handleUpdateCourse() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req coursePatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, fmt.Sprintf("Permintaan tidak valid: %v", err))
			return
		}

		err := s.store.UpdateCourse(c.Request.Context(), c.Param("id"), req.toPatch())
		if errors.Is(err, repository.ErrNotFound) {
			respondMessage(c, http.StatusNotFound, "Kursus tidak ditemukan")
			return
		}
		if err != nil {
			respondError(c, "講座の更新", err)
			return
		}
		respondMessage(c, http.StatusOK, "Updated")
	}
}

// handleDeleteCourse は講座を削除するハンドラを返す。受講登録も合わせて削除される。
func (s *Server) handleDeleteCourse() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.store.DeleteCourse(c.Request.Context(), c.Param("id"))
		if errors.Is(err, repository.ErrNotFound) {
			respondMessage(c, http.StatusNotFound, "Kursus tidak ditemukan")
			return
		}
		if err != nil {
			respondError(c, "講座の削除", err)
			return
		}
		respondMessage(c, http.StatusOK, "Deleted")
	}
}
