package app

import (
	"fmt"
	"strconv"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーとして起動する。引数省略時の既定値。
	CommandServe Command = "serve"
	// CommandWorker は非アクティブなレジュメの定期削除ワーカーとして起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はストアのスキーマを準備する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの/healthを確認する。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// Usage はサブコマンドの一覧を返す。
func Usage() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return "usage: resumekit [" + strings.Join(names, "|") + "]\n" +
		"       resumekit migrate [up|down [N]|status]"
}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返す。
// 未知のサブコマンドは誤ってサーバーを起動しないようエラーにする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	for _, c := range commands {
		if args[0] == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown command %q\n%s", args[0], Usage())
}

// MigrateDirection はmigrateサブコマンドの操作種別。
type MigrateDirection string

const (
	MigrateUp     MigrateDirection = "up"
	MigrateDown   MigrateDirection = "down"
	MigrateStatus MigrateDirection = "status"
)

// MigrateAction はmigrateサブコマンドの解析結果。
type MigrateAction struct {
	Direction MigrateDirection
	Steps     int // Downで戻す件数
}

// ParseMigrateAction はmigrate以降の引数を解析する。
// 省略時はup。downの件数省略時は1件戻す。
func ParseMigrateAction(args []string) (MigrateAction, error) {
	if len(args) == 0 {
		return MigrateAction{Direction: MigrateUp}, nil
	}

	switch MigrateDirection(args[0]) {
	case MigrateUp:
		return MigrateAction{Direction: MigrateUp}, nil
	case MigrateStatus:
		return MigrateAction{Direction: MigrateStatus}, nil
	case MigrateDown:
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return MigrateAction{}, fmt.Errorf("invalid rollback steps %q: want a positive integer", args[1])
			}
			steps = n
		}
		return MigrateAction{Direction: MigrateDown, Steps: steps}, nil
	default:
		return MigrateAction{}, fmt.Errorf("unknown migrate action %q\n%s", args[0], Usage())
	}
}
