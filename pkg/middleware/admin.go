package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kursus/pkg/identity"
)

// RequireAdmin は呼び出し元が管理者でなければ403を返すGinミドルウェアを返す。
// Authenticateの後に適用する。
func RequireAdmin(admins identity.AdminSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok || !admins.Contains(p.Email) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Akses admin ditolak",
			})
			return
		}
		c.Next()
	}
}
