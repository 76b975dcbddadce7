package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kursus/pkg/identity"
)

// contextKeyPrincipal は認証済みの呼び出し元をGinコンテキストに格納するキー。
const contextKeyPrincipal = "principal"

// Authenticate はBearerトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "principal" を設定する。
// トークンがない、形式が不正、または検証に失敗した場合は401を返す。
func Authenticate(v identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Token tidak ada",
			})
			return
		}

		// 認証スキームは大文字小文字を区別しない
		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Format token tidak valid",
			})
			return
		}

		principal, err := v.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if !errors.Is(err, identity.ErrInvalidToken) {
				log.Printf("[Auth] トークンの検証に失敗: %v", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Token tidak valid",
			})
			return
		}

		c.Set(contextKeyPrincipal, principal)
		c.Next()
	}
}

// GetPrincipal はGinコンテキストから認証済みの呼び出し元を取得する。
// Authenticateミドルウェアが事前に適用されている必要がある。
func GetPrincipal(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(contextKeyPrincipal)
	if !ok {
		return identity.Principal{}, false
	}
	p, ok := v.(identity.Principal)
	return p, ok
}
