// kursusctlは講座プラットフォームの運用コマンド。
// データベースのマイグレーションと、ローカル検証用のアクセストークン発行を行う。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version はビルド時に埋め込むバージョン。
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kursusctl",
		Short:         "Kursus API の運用コマンド",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTokenCmd())
	return rootCmd
}
