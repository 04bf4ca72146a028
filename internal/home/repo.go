// Package home はホームタブのオンボーディング状態の解決と描画を提供する。
package home

import (
	"strings"

	"github.com/hitoshi/goodday/internal/model"
)

// ParseRepoInput はユーザー入力のリポジトリ指定をowner/nameへ分解する。
// 受け付ける形式:
//   - https://github.com/owner/name （http、www付きも可）
//   - github.com/owner/name
//   - owner/name
//
// 末尾の「/」と「.git」は無視する。解析できない場合はInvalidRepoエラーを返す。
func ParseRepoInput(input string) (owner, name string, err error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", model.NewInvalidRepoError(input)
	}
	return parts[0], parts[1], nil
}
