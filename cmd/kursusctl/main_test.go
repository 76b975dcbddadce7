package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/kursus/pkg/identity"
)

// execute はkursusctlを引数付きで実行し、標準出力の内容を返す。
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestTokenCmd はトークン発行コマンドを検証する。
func TestTokenCmd(t *testing.T) {
	t.Run("発行したトークンが同じシークレットで検証できること", func(t *testing.T) {
		out, err := execute(t, "token", "--secret", "ctl-secret", "--email", "budi@example.com", "--name", "Budi Santoso")
		if err != nil {
			t.Fatalf("tokenコマンドでエラーが発生: %v", err)
		}

		p, err := identity.NewJWTVerifier("ctl-secret").Verify(context.Background(), strings.TrimSpace(out))
		if err != nil {
			t.Fatalf("Verify()でエラーが発生: %v", err)
		}
		if p.Email != "budi@example.com" || p.FullName != "Budi Santoso" {
			t.Errorf("Principal = %+v", p)
		}
	})

	t.Run("環境変数のシークレットを使うこと", func(t *testing.T) {
		t.Setenv("SUPABASE_JWT_SECRET", "env-secret")

		out, err := execute(t, "token", "--email", "sari@example.com")
		if err != nil {
			t.Fatalf("tokenコマンドでエラーが発生: %v", err)
		}
		if _, err := identity.NewJWTVerifier("env-secret").Verify(context.Background(), strings.TrimSpace(out)); err != nil {
			t.Errorf("Verify()でエラーが発生: %v", err)
		}
	})

	t.Run("メールアドレスがなければエラーになること", func(t *testing.T) {
		if _, err := execute(t, "token", "--secret", "ctl-secret"); err == nil {
			t.Fatal("エラーが返るべきだが、nilが返った")
		}
	})

	t.Run("シークレットがなければエラーになること", func(t *testing.T) {
		t.Setenv("SUPABASE_JWT_SECRET", "")

		if _, err := execute(t, "token", "--email", "budi@example.com"); err == nil {
			t.Fatal("エラーが返るべきだが、nilが返った")
		}
	})
}

// TestMigrateCmd はSQLiteに対するマイグレーションコマンドを検証する。
func TestMigrateCmd(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "ctl.db"))

	if _, err := execute(t, "migrate", "up"); err != nil {
		t.Fatalf("migrate upでエラーが発生: %v", err)
	}

	out, err := execute(t, "migrate", "status")
	if err != nil {
		t.Fatalf("migrate statusでエラーが発生: %v", err)
	}
	if strings.Count(out, "applied") != 2 {
		t.Errorf("status出力 =\n%s", out)
	}

	if _, err := execute(t, "migrate", "down"); err != nil {
		t.Fatalf("migrate downでエラーが発生: %v", err)
	}
	out, err = execute(t, "migrate", "status")
	if err != nil {
		t.Fatalf("migrate statusでエラーが発生: %v", err)
	}
	if strings.Count(out, "applied") != 1 || strings.Count(out, "pending") != 1 {
		t.Errorf("down後のstatus出力 =\n%s", out)
	}
}

// TestMigrateCmdUnsupportedDriver はREST API経由ではマイグレーションできないことを検証する。
func TestMigrateCmdUnsupportedDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgrest")

	if _, err := execute(t, "migrate", "up"); err == nil {
		t.Fatal("エラーが返るべきだが、nilが返った")
	}
}
