package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/kursus/pkg/identity"
)

func newTokenCmd() *cobra.Command {
	var (
		email  string
		name   string
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "ローカル検証用のアクセストークンを発行する",
		Long: `SUPABASE_JWT_SECRET で署名した HS256 のアクセストークンを標準出力に書き出す。
API サーバーが同じシークレットでトークンをローカル検証している場合に使える。

Examples:
  kursusctl token --email budi@example.com --name "Budi Santoso"
  kursusctl token --email admin@example.com --ttl 15m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("SUPABASE_JWT_SECRET")
			}
			if secret == "" {
				return errors.New("--secret か SUPABASE_JWT_SECRET を指定してください")
			}
			if email == "" {
				return errors.New("--email は必須です")
			}

			token, err := identity.SignToken(secret, identity.Principal{
				ID:       email,
				Email:    email,
				FullName: name,
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "トークンに含めるメールアドレス")
	cmd.Flags().StringVar(&name, "name", "", "修了証に印字される氏名")
	cmd.Flags().StringVar(&secret, "secret", "", "署名シークレット（省略時は SUPABASE_JWT_SECRET）")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "有効期間")
	return cmd
}
