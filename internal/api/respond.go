package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kursus/pkg/identity"
	"github.com/nao1215/kursus/pkg/middleware"
)

// respondMessage はmessageだけを持つJSONを返す。
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// respondError は想定外のエラーを500として返す。上流のメッセージはそのまま伝える。
func respondError(c *gin.Context, op string, err error) {
	log.Printf("[API] %sに失敗: %v", op, err)
	respondMessage(c, http.StatusInternalServerError, err.Error())
}

// principal は認証済みの呼び出し元を返す。取得できなければ401を返してfalseになる。
func principal(c *gin.Context) (identity.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok || p.Email == "" {
		respondMessage(c, http.StatusUnauthorized, "Token tidak valid")
		return identity.Principal{}, false
	}
	return p, true
}
