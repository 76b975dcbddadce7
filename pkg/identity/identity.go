package identity

import (
	"context"
	"errors"
)

// ErrInvalidToken はトークンが無効、期限切れ、または認証サービスに拒否されたことを表す。
var ErrInvalidToken = errors.New("トークンが無効です")

// defaultRecipientName は表示名が一切ない場合に使う名前。
const defaultRecipientName = "Peserta"

// Principal は認証済みの呼び出し元。リクエストごとに解決され、保存はしない。
type Principal struct {
	// ID は認証サービス上のユーザーID。
	ID string `json:"id"`
	// Email はユーザーのメールアドレス。受講登録と管理者判定のキーになる。
	Email string `json:"email"`
	// FullName はユーザーメタデータのfull_name。
	FullName string `json:"full_name,omitempty"`
	// DisplayName はユーザーメタデータのname。
	DisplayName string `json:"display_name,omitempty"`
}

// RecipientName は修了証に印字する名前を返す。
// full_name、name、メールアドレスの順に空でないものを使う。
func (p Principal) RecipientName() string {
	for _, name := range []string{p.FullName, p.DisplayName, p.Email} {
		if name != "" {
			return name
		}
	}
	return defaultRecipientName
}

// Verifier はBearerトークンから呼び出し元を解決する。
type Verifier interface {
	// Verify はtokenを検証してPrincipalを返す。
	// トークン自体が拒否された場合はErrInvalidTokenをラップしたエラーを返す。
	Verify(ctx context.Context, token string) (Principal, error)
}
