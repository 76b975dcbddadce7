package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims は認証サービスが発行するアクセストークンのクレーム。
type Claims struct {
	jwt.RegisteredClaims
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// UserMetadata はサインアップ時に登録された表示名など。
	UserMetadata UserMetadata `json:"user_metadata"`
}

// UserMetadata はトークンに含まれるユーザーメタデータ。
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Name     string `json:"name,omitempty"`
}

// JWTVerifier は共有シークレット（HS256）でトークンをローカルに検証するVerifier。
// 認証サービスへの往復を省きたい場合に使う。
type JWTVerifier struct {
	secret []byte
	// now は有効期限の判定に使う時計。
	now func() time.Time
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier はsecretで署名されたトークンを受け付けるJWTVerifierを生成する。
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), now: time.Now}
}

// Verify はtokenの署名と有効期限を検証し、クレームからPrincipalを組み立てる。
func (v *JWTVerifier) Verify(_ context.Context, token string) (Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Email == "" {
		return Principal{}, fmt.Errorf("%w: メールアドレスがありません", ErrInvalidToken)
	}

	return Principal{
		ID:          claims.Subject,
		Email:       claims.Email,
		FullName:    claims.UserMetadata.FullName,
		DisplayName: claims.UserMetadata.Name,
	}, nil
}

// SignToken はpのアクセストークンをsecretで署名して返す。
// 開発環境やテストで認証サービスの代わりにトークンを発行するために使う。
func SignToken(secret string, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "kursusctl",
		},
		Email: p.Email,
		UserMetadata: UserMetadata{
			FullName: p.FullName,
			Name:     p.DisplayName,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}
