// Package identity はリクエストの呼び出し元を特定する仕組みを提供する。
//
// Bearerトークンを外部の認証サービス（Supabase Auth互換）に照会するClientと、
// 共有シークレットでローカルに署名を検証するJWTVerifierがあり、
// どちらもVerifierインターフェースを満たす。管理者の判定にはAdminSetを使う。
package identity
