package identity

import "strings"

// AdminSet は管理者メールアドレスの集合。起動時に一度だけ構築し、以後は読み取り専用。
type AdminSet struct {
	emails map[string]struct{}
}

// ParseAdminSet はカンマ区切りのメールアドレス一覧からAdminSetを構築する。
// 前後の空白は除去し、大文字小文字は区別しない。空要素は無視する。
func ParseAdminSet(raw string) AdminSet {
	emails := make(map[string]struct{})
	for _, e := range strings.Split(raw, ",") {
		if e = normalizeEmail(e); e != "" {
			emails[e] = struct{}{}
		}
	}
	return AdminSet{emails: emails}
}

// Contains はemailが管理者として登録されているかを返す。
func (a AdminSet) Contains(email string) bool {
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	_, ok := a.emails[email]
	return ok
}

// Len は登録されている管理者の数を返す。
func (a AdminSet) Len() int {
	return len(a.emails)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
