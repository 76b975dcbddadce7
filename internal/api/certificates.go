package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kursus/internal/certificate"
	"github.com/nao1215/kursus/internal/repository"
)

// msgNotEligible は修了していない講座の修了証を要求された場合のメッセージ。
const msgNotEligible = "Anda belum lulus kursus ini"

// filenameReplacer はContent-Dispositionのファイル名に使えない文字を取り除く。
var filenameReplacer = strings.NewReplacer(`"`, "", `\`, "", "\r", "", "\n", "")

// handleCertificate は修了済みの講座の修了証をPDFで返すハンドラを返す。
// 受講登録がない、またはステータスがpassedでない場合は403になる。
func (s *Server) handleCertificate() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}

		courseID := c.Param("courseId")
		enrollment, err := s.store.FindEnrollment(c.Request.Context(), courseID, p.Email)
		if errors.Is(err, repository.ErrNotFound) {
			respondMessage(c, http.StatusForbidden, msgNotEligible)
			return
		}
		if err != nil {
			respondError(c, "受講登録の取得", err)
			return
		}
		if !enrollment.IsPassed() {
			respondMessage(c, http.StatusForbidden, msgNotEligible)
			return
		}

		// 描画に失敗した場合に途中までのPDFを返さないよう、先にバッファへ書き出す
		var buf bytes.Buffer
		err = s.renderer.Render(&buf, certificate.Data{
			RecipientName: p.RecipientName(),
			CourseTitle:   enrollment.CourseTitle,
			IssuedAt:      s.now(),
		})
		if err != nil {
			respondError(c, "修了証の描画", err)
			return
		}
		s.metrics.CertificateIssued()

		c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="sertifikat-%s.pdf"`, filenameReplacer.Replace(courseID)))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}
