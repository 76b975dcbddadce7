// Package httpclient は外部サービスとのHTTP通信を行うクライアントを提供する。
//
// 認証サービスへのトークン照会、ホスト型データベースのREST APIの呼び出しなど、
// 外部サービスとの通信パターンを統一する。
package httpclient
