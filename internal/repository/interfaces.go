// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/goodday/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindBySlackID は指定Slack IDのユーザーを取得する。見つからない場合はnilを返す。
	// 未知のユーザーはエラーではなく初回オンボーディングの開始シグナルとして扱う。
	FindBySlackID(ctx context.Context, slackID string) (*model.User, error)

	// Upsert はユーザーをUPSERTする。行が存在しなければidのみの行を挿入し、
	// その後patchのnilでないフィールドだけを更新する。
	// 既存フィールドを暗黙の空値で上書きすることはない。
	Upsert(ctx context.Context, patch model.UserPatch) error

	// FindByRepo は指定の (owner, name) を登録しているユーザーを検索する。
	// 見つからない場合はnilを返す。リポジトリ重複登録の検出に使用する。
	FindByRepo(ctx context.Context, owner, name string) (*model.User, error)

	// ListDueForPrompt は現地時刻がprompt_timeの時台に一致する購読中の
	// ユーザー一覧を返す。タイムゾーン未設定のユーザーはUTCとして扱う。
	ListDueForPrompt(ctx context.Context) ([]*model.User, error)
}
