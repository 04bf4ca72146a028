package home

import (
	"fmt"
	"math/rand"

	"github.com/hitoshi/goodday/internal/slack"
)

// RepoCheckPromptMessage はリポジトリ保存直後にDMへ送る案内メッセージ。
// ボットの招待とその確認ボタンを含む。
func RepoCheckPromptMessage(owner, name, botLogin string) []slack.Block {
	return []slack.Block{
		slack.NewSection(fmt.Sprintf(
			"Got it! I'll save your records to `%s/%s`. Now invite `%s` as a collaborator so I can write to it.",
			owner, name, botLogin)),
		&slack.ActionsBlock{
			Type: "actions",
			Elements: []any{
				slack.NewButton(ActionIDCheckRepo, "I've invited the bot", "check"),
			},
		},
	}
}

// PermissionsMessage はコラボレーター確認に失敗した場合の案内メッセージ。
func PermissionsMessage(botLogin string) []slack.Block {
	return []slack.Block{
		slack.NewSection(fmt.Sprintf(
			"Hmm, I can't write to your repository yet. Make sure `%s` is invited as a collaborator, then try again.",
			botLogin)),
		&slack.ActionsBlock{
			Type: "actions",
			Elements: []any{
				slack.NewButton(ActionIDCheckRepo, "Check again", "check"),
			},
		},
	}
}

// SetupCompleteMessage は設定完了を知らせるメッセージ。
func SetupCompleteMessage() []slack.Block {
	return []slack.Block{
		slack.NewSection(":tada: All set! I'll check in with you every workday to ask how it went."),
	}
}

// TryAgainMessage は保存失敗時にユーザーへ再送を促すメッセージ。
func TryAgainMessage() []slack.Block {
	return []slack.Block{
		slack.NewSection(":warning: I couldn't save your response. Please press *Save my response* again."),
	}
}

// formSuccessMessages は保存成功時の返答のバリエーション。
var formSuccessMessages = []string{
	"Thanks for checking in! See you tomorrow. :wave:",
	"Noted! Your day is on the record. :memo:",
	"Got it, saved! Have a great evening. :night_with_stars:",
	"Response saved. Keep up the good work! :muscle:",
	"All done! Another day in the books. :books:",
}

// FormSuccessMessage は保存成功メッセージをランダムに1つ返す。
func FormSuccessMessage() []slack.Block {
	return []slack.Block{
		slack.NewSection(formSuccessMessages[rand.Intn(len(formSuccessMessages))]),
	}
}
