// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Bearerトークンによる認証、管理者判定、パニックリカバリ、CORS設定、
// リクエストメトリクス、利用者単位のレート制限を含む。
package middleware
