package repository

import "errors"

var (
	// ErrNotFound は対象のレコードが存在しないことを表す。
	ErrNotFound = errors.New("repository: not found")
	// ErrAlreadyEnrolled は同じ講座とメールアドレスの受講登録が既に存在することを表す。
	ErrAlreadyEnrolled = errors.New("repository: already enrolled")
)
