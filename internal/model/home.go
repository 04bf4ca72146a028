package model

// HomeState はユーザーのセットアップ進行状況から導出されるホーム画面の状態。
// 保存はされず、描画のたびにUserスナップショットから再計算される。
type HomeState string

const (
	// HomeStateNoRepo はリポジトリが未登録の初期状態を示す。
	HomeStateNoRepo HomeState = "no_repo"
	// HomeStateInvalidRepo は送信されたリポジトリ文字列が
	// owner/name に解析できなかった状態を示す。
	HomeStateInvalidRepo HomeState = "invalid_repo"
	// HomeStateRepoClaimed は同一の (owner, name) を別ユーザーが
	// 既に登録している状態を示す。
	HomeStateRepoClaimed HomeState = "repo_claimed"
	// HomeStateInviteBot はボットがまだリポジトリのコラボレーターに
	// なっていない状態を示す。
	HomeStateInviteBot HomeState = "invite_bot"
	// HomeStateSetupComplete は全セットアップが完了した状態を示す。
	HomeStateSetupComplete HomeState = "setup_complete"
)
