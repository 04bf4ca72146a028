// Package model はドメインモデルを定義する。
package model

// User はSlack上のサービス利用ユーザーを表す。
// slackidを主キーとし、オンボーディングの進行に応じてフィールドが段階的に埋まる。
// 初回インタラクション時にidのみの行が作成され、削除はこのコアの責務外。
type User struct {
	SlackID        string
	GHUser         string
	GHRepo         string
	Timezone       string
	PromptTime     string // "HH:MM" 形式。未設定の場合は空文字列。
	ChannelID      string
	IsUnsubscribed bool
}

// HasRepo はリポジトリが紐付け済みかどうかを返す。
func (u *User) HasRepo() bool {
	return u.GHUser != "" && u.GHRepo != ""
}

// UserPatch はUserの部分更新を表す。
// nilのフィールドは更新対象外となり、既存の値を維持する。
// 複数ステップのオンボーディング会話が1行を段階的に埋めるための仕組みであり、
// 後のステップが前のステップの値を暗黙の空値で上書きすることを防ぐ。
type UserPatch struct {
	SlackID        string
	GHUser         *string
	GHRepo         *string
	Timezone       *string
	PromptTime     *string
	ChannelID      *string
	IsUnsubscribed *bool
}

// String はstringのポインタを返す。UserPatch構築用ヘルパー。
func String(s string) *string {
	return &s
}

// Bool はboolのポインタを返す。UserPatch構築用ヘルパー。
func Bool(b bool) *bool {
	return &b
}
