package domain

import "time"

const (
	// StatusRegistered は受講登録直後のステータス。
	StatusRegistered = "registered"
	// StatusPassed は修了済みのステータス。修了証の発行条件。
	StatusPassed = "passed"
	// StatusFailed は不合格のステータス。
	StatusFailed = "failed"
)

// Enrollment は講座とユーザーのメールアドレスの組み合わせで表される受講登録。
// ステータスは自由記述で、管理者が任意の文字列に更新できる。
type Enrollment struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserEmail string    `json:"user_email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// EnrollmentView は講座名を結合した受講登録。
// 講座が削除済みの場合CourseTitleは空文字になる。
type EnrollmentView struct {
	Enrollment
	CourseTitle string `json:"course_title"`
}

// IsPassed は修了証を発行できるステータスかを返す。
func (e Enrollment) IsPassed() bool {
	return e.Status == StatusPassed
}
