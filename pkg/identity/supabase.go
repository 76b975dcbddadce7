package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/kursus/pkg/httpclient"
)

// userPath は認証サービスでトークンの持ち主を返すエンドポイント。
const userPath = "/auth/v1/user"

// Client は認証サービスにトークンを照会するVerifier。
type Client struct {
	http *httpclient.Client
}

var _ Verifier = (*Client)(nil)

// NewClient はbaseURLの認証サービスに公開キー（anon key）で接続するClientを生成する。
func NewClient(baseURL, anonKey string, opts ...httpclient.Option) *Client {
	opts = append([]httpclient.Option{httpclient.WithHeader("apikey", anonKey)}, opts...)
	return &Client{http: httpclient.New(baseURL, opts...)}
}

// userResponse は /auth/v1/user のレスポンスのうち使用する部分。
type userResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
		Name     string `json:"name"`
	} `json:"user_metadata"`
}

// Verify はtokenの持ち主を認証サービスに問い合わせる。
// 401または403が返った場合はErrInvalidTokenを返す。
func (c *Client) Verify(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrInvalidToken
	}

	var user userResponse
	err := c.http.GetJSON(httpclient.WithBearerToken(ctx, token), userPath, &user)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
			return Principal{}, fmt.Errorf("%w: %s", ErrInvalidToken, statusErr.Body)
		}
		return Principal{}, fmt.Errorf("ユーザー情報の取得に失敗: %w", err)
	}
	if user.Email == "" {
		return Principal{}, fmt.Errorf("%w: メールアドレスがありません", ErrInvalidToken)
	}

	return Principal{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.UserMetadata.FullName,
		DisplayName: user.UserMetadata.Name,
	}, nil
}
