package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kursus/pkg/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubVerifier はトークン文字列をキーにPrincipalを返すテスト用Verifier。
type stubVerifier struct {
	principals map[string]identity.Principal
	err        error
}

func (v stubVerifier) Verify(_ context.Context, token string) (identity.Principal, error) {
	if v.err != nil {
		return identity.Principal{}, v.err
	}
	p, ok := v.principals[token]
	if !ok {
		return identity.Principal{}, identity.ErrInvalidToken
	}
	return p, nil
}

var testVerifier = stubVerifier{principals: map[string]identity.Principal{
	"admin-token": {ID: "u-admin", Email: "Admin@Example.com"},
	"user-token":  {ID: "u-user", Email: "budi@example.com", FullName: "Budi Santoso"},
}}

// serve はrouterにリクエストを送りレスポンスを返す。
func serve(router *gin.Engine, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v", err)
	}
	return body["message"]
}

// TestAuthenticate はAuthenticateミドルウェアを検証する。
func TestAuthenticate(t *testing.T) {
	t.Parallel()

	newRouter := func(v identity.Verifier, captured *identity.Principal) *gin.Engine {
		router := gin.New()
		router.Use(Authenticate(v))
		router.GET("/api/my-enrollments", func(c *gin.Context) {
			p, ok := GetPrincipal(c)
			if !ok {
				c.JSON(http.StatusInternalServerError, gin.H{"message": "principal missing"})
				return
			}
			if captured != nil {
				*captured = p
			}
			c.JSON(http.StatusOK, []gin.H{})
		})
		return router
	}

	t.Run("有効なトークンでPrincipalがコンテキストに設定されること", func(t *testing.T) {
		t.Parallel()

		var got identity.Principal
		w := serve(newRouter(testVerifier, &got), http.MethodGet, "/api/my-enrollments", "Bearer user-token")

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got.Email != "budi@example.com" || got.FullName != "Budi Santoso" {
			t.Errorf("Principal = %+v", got)
		}
	})

	t.Run("認証スキームの大文字小文字を区別しないこと", func(t *testing.T) {
		t.Parallel()

		for _, h := range []string{"bearer user-token", "BEARER user-token", "BeArEr user-token"} {
			var got identity.Principal
			w := serve(newRouter(testVerifier, &got), http.MethodGet, "/api/my-enrollments", h)
			if w.Code != http.StatusOK {
				t.Errorf("Authorization=%q: ステータスコード = %d, want %d", h, w.Code, http.StatusOK)
			}
			if got.Email != "budi@example.com" {
				t.Errorf("Authorization=%q: Principal = %+v", h, got)
			}
		}
	})

	t.Run("Authorizationヘッダーがない場合401が返ること", func(t *testing.T) {
		t.Parallel()

		w := serve(newRouter(testVerifier, nil), http.MethodGet, "/api/my-enrollments", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if messageOf(t, w) == "" {
			t.Error("messageが空")
		}
	})

	t.Run("Bearer以外の形式では401が返ること", func(t *testing.T) {
		t.Parallel()

		for _, h := range []string{"Basic dXNlcjpwYXNz", "Bearer ", "Bearer    ", "user-token"} {
			w := serve(newRouter(testVerifier, nil), http.MethodGet, "/api/my-enrollments", h)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Authorization=%q: ステータスコード = %d, want %d", h, w.Code, http.StatusUnauthorized)
			}
		}
	})

	t.Run("無効なトークンでは401が返ること", func(t *testing.T) {
		t.Parallel()

		w := serve(newRouter(testVerifier, nil), http.MethodGet, "/api/my-enrollments", "Bearer expired")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("認証サービスに到達できない場合も401が返ること", func(t *testing.T) {
		t.Parallel()

		v := stubVerifier{err: errors.New("connection refused")}
		w := serve(newRouter(v, nil), http.MethodGet, "/api/my-enrollments", "Bearer user-token")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestGetPrincipal はGetPrincipal関数を検証する。
func TestGetPrincipal(t *testing.T) {
	t.Parallel()

	t.Run("未設定の場合はfalseが返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		if _, ok := GetPrincipal(c); ok {
			t.Error("GetPrincipal()がtrueを返した")
		}
	})

	t.Run("型が異なる場合はfalseが返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(contextKeyPrincipal, "budi@example.com")
		if _, ok := GetPrincipal(c); ok {
			t.Error("GetPrincipal()がtrueを返した")
		}
	})
}
