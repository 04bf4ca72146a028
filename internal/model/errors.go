// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrVersionConflict はリモートblobの書き込みトークン（sha）が古いことを示す。
// 読み取りから書き込みの間に他の書き込みがコミットされた場合に発生する。
// 自動リトライやマージは行わず、呼び出し元へそのまま返す。
var ErrVersionConflict = errors.New("version token is stale")

// RepoNotFoundError はリポジトリ自体が存在しない（またはアクセスできない）
// ことを示す。データファイルの不在は初回書き込みを意味するためエラーではなく、
// これはそれと区別される本当の失敗である。
type RepoNotFoundError struct {
	Owner string
	Repo  string
}

// Error はerrorインターフェースを実装する。
func (e *RepoNotFoundError) Error() string {
	return fmt.Sprintf("repository not found: %s/%s", e.Owner, e.Repo)
}

// TransportError は外部プロバイダとの通信失敗（ネットワーク、認証、
// レート制限）を表す。プロバイダのステータスとメッセージを保持し、
// リトライ判断は呼び出し元に委ねる。
type TransportError struct {
	Provider   string // "github" または "slack"
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// APIError はHTTPエンドポイントの統一エラーフォーマットを表す。
// 原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, store, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRepo     = "INVALID_REPO"
	ErrCodeRepoNotFound    = "REPO_NOT_FOUND"
	ErrCodeVersionConflict = "VERSION_CONFLICT"
	ErrCodeTransport       = "TRANSPORT_ERROR"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeMissingUserID   = "MISSING_USER_ID"
)

// NewInvalidRepoError は解析できないリポジトリ指定のエラーを生成する。
func NewInvalidRepoError(input string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRepo,
		Message:  fmt.Sprintf("リポジトリURLを解析できません: %s", input),
		Category: "validation",
		Action:   "https://github.com/owner/name 形式のURLを入力してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(slackID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", slackID),
		Category: "validation",
		Action:   "アプリのホームタブを一度開いてから再度お試しください。",
	}
}

// NewMissingUserIDError はユーザーID未指定のエラーを生成する。
func NewMissingUserIDError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingUserID,
		Message:  "user_idが指定されていません。",
		Category: "validation",
		Action:   "リクエストボディにuser_idを含めてください。",
	}
}
