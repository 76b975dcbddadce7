package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestClientVerify は認証サービスへの照会を検証する。
func TestClientVerify(t *testing.T) {
	t.Parallel()

	t.Run("トークンとapikeyを送りユーザー情報を受け取れること", func(t *testing.T) {
		t.Parallel()

		var gotAuth, gotKey, gotPath string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotKey = r.Header.Get("apikey")
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"u1","email":"budi@example.com","user_metadata":{"full_name":"Budi Santoso","name":"budi"}}`))
		}))
		defer ts.Close()

		p, err := NewClient(ts.URL, "anon-key").Verify(context.Background(), "user-token")
		if err != nil {
			t.Fatalf("Verify()でエラーが発生: %v", err)
		}
		if gotPath != "/auth/v1/user" {
			t.Errorf("Path = %q, want /auth/v1/user", gotPath)
		}
		if gotAuth != "Bearer user-token" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer user-token")
		}
		if gotKey != "anon-key" {
			t.Errorf("apikey = %q, want %q", gotKey, "anon-key")
		}
		want := Principal{ID: "u1", Email: "budi@example.com", FullName: "Budi Santoso", DisplayName: "budi"}
		if p != want {
			t.Errorf("Principal = %+v, want %+v", p, want)
		}
	})

	t.Run("401が返った場合はErrInvalidTokenになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
		}))
		defer ts.Close()

		_, err := NewClient(ts.URL, "anon-key").Verify(context.Background(), "expired")
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("500が返った場合はErrInvalidToken以外のエラーになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		_, err := NewClient(ts.URL, "anon-key").Verify(context.Background(), "token")
		if err == nil {
			t.Fatal("Verify()がエラーを返すべきだが、nilが返った")
		}
		if errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, ErrInvalidTokenであってはならない", err)
		}
	})

	t.Run("空のトークンは照会せずに拒否すること", func(t *testing.T) {
		t.Parallel()

		called := false
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		_, err := NewClient(ts.URL, "anon-key").Verify(context.Background(), "")
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
		if called {
			t.Error("空のトークンで認証サービスが呼ばれた")
		}
	})
}
