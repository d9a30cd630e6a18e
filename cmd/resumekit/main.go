// resumekit はレジュメビルダーのAPIサーバー・ワーカー・マイグレーションを1つのバイナリで提供する。
//
//	resumekit [serve|worker|migrate|healthcheck]
//	resumekit migrate [up|down [N]|status]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/resumekit/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
