package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はSlack連携APIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は日次プロンプト配信ワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 第1引数のみを見る。引数が空またはサポート外のコマンドの場合は
// CommandServeを返す。promptはworkerの別名。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "worker", "prompt":
		return CommandWorker
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
