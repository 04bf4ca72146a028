package home

import (
	"fmt"

	"github.com/hitoshi/goodday/internal/model"
	"github.com/hitoshi/goodday/internal/slack"
)

// ホームタブのインタラクションのアクションID。
const (
	ActionIDRepoInput       = "onboarding-github-repo"
	ActionIDTimePicker      = "onboarding-timepicker-action"
	ActionIDCheckRepo       = "check-repo"
	ActionIDSubscribeToggle = "subscribe-toggle"
	ActionIDTriggerPrompt   = "trigger_prompt"
)

// Render はオンボーディング状態に応じたホームビューのブロック列を構築する。
// 純粋関数であり、I/Oや可変状態へのアクセスを行わない。
// promptTimeが未設定の場合はdefaultPromptTimeをタイムピッカーの初期値にする。
func Render(user *model.User, state model.HomeState, botLogin, defaultPromptTime string) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeader("", "Good Day"),
		slack.NewSection("Hi there! :wave: Good Day helps you keep track of how your workdays are going. Finish the setup below to get started."),
		slack.NewDivider(),
	}

	// Step 1: リポジトリの登録
	blocks = append(blocks,
		slack.NewSection("*Step 1:* Create a GitHub repository for your records and paste its URL below."),
		&slack.InputBlock{
			Type:           "input",
			DispatchAction: true,
			Element:        &slack.PlainTextInputElement{Type: "plain_text_input", ActionID: ActionIDRepoInput},
			Label:          slack.PlainText("GitHub repository"),
		},
	)

	switch state {
	case model.HomeStateInvalidRepo:
		blocks = append(blocks, slack.NewSection(
			":warning: That doesn't look like a repository. Enter a URL like `https://github.com/owner/name`."))
	case model.HomeStateRepoClaimed:
		blocks = append(blocks, slack.NewSection(
			":warning: That repository is already connected to another Slack account. Pick a repository of your own."))
	default:
		if user != nil && user.HasRepo() {
			blocks = append(blocks, slack.NewSection(
				fmt.Sprintf(":white_check_mark: Saving your records to `%s/%s`.", user.GHUser, user.GHRepo)))
		}
	}

	// Step 2: プロンプト時刻
	promptTime := defaultPromptTime
	if user != nil && user.PromptTime != "" {
		promptTime = user.PromptTime
	}
	blocks = append(blocks,
		slack.NewDivider(),
		slack.NewSection("*Step 2:* Pick the time of day you want to be asked about your day."),
		&slack.ActionsBlock{
			Type: "actions",
			Elements: []any{
				&slack.TimePickerElement{
					Type:        "timepicker",
					ActionID:    ActionIDTimePicker,
					InitialTime: promptTime,
					Placeholder: slack.PlainText("Select time"),
				},
			},
		},
	)

	// Step 3: ボットの招待
	blocks = append(blocks,
		slack.NewDivider(),
		slack.NewSection(fmt.Sprintf(
			"*Step 3:* Invite `%s` as a collaborator on your repository so it can save your records.", botLogin)),
	)

	switch state {
	case model.HomeStateInviteBot:
		blocks = append(blocks,
			slack.NewSection(fmt.Sprintf(
				"On GitHub, go to *Settings → Collaborators* in your repository and add `%s`. Then press the button below.", botLogin)),
			&slack.ActionsBlock{
				Type: "actions",
				Elements: []any{
					slack.NewButton(ActionIDCheckRepo, "I've invited the bot", "check"),
				},
			},
		)
	case model.HomeStateSetupComplete:
		toggleLabel := "Pause daily prompts"
		if user != nil && user.IsUnsubscribed {
			toggleLabel = "Resume daily prompts"
		}
		blocks = append(blocks,
			slack.NewSection(":tada: You're all set! We'll check in with you every workday."),
			&slack.ActionsBlock{
				Type: "actions",
				Elements: []any{
					slack.NewButton(ActionIDSubscribeToggle, toggleLabel, "toggle"),
					slack.NewButton(ActionIDTriggerPrompt, "Send me today's form now", "trigger"),
				},
			},
		)
	}

	return blocks
}
