package form

import (
	"fmt"
	"time"

	"github.com/hitoshi/goodday/internal/slack"
)

// ActionIDRecordDay は日次フォームの保存ボタンのアクションID。
const ActionIDRecordDay = "record_day"

// QuestionnaireBlocks は日次アンケートのメッセージブロックを構築する。
// 先頭のheaderブロックのblock_idにISO形式の日付を埋め込み、
// 保存時にはそこから記録対象日を読み戻す。
func QuestionnaireBlocks(s *Schema, date time.Time) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeader(date.Format("2006-01-02"), date.Format("Mon Jan 2 2006")),
		slack.NewSection("Hope you had a good day today! Tell us about it:"),
		slack.NewDivider(),
	}

	for _, q := range s.questions {
		options := make([]slack.OptionObject, len(q.DisplayOptions))
		for i, opt := range q.DisplayOptions {
			options[i] = slack.OptionObject{
				Text:  slack.PlainText(opt),
				Value: fmt.Sprintf("%d", i),
			}
		}

		blocks = append(blocks, &slack.SectionBlock{
			Type:    "section",
			BlockID: q.ID + "_block",
			Text:    slack.Markdown(q.DisplayTitle),
			Accessory: &slack.StaticSelectElement{
				Type:        "static_select",
				ActionID:    q.ID,
				Placeholder: slack.PlainText(q.Placeholder),
				Options:     options,
			},
		})
	}

	blocks = append(blocks,
		slack.NewDivider(),
		&slack.ActionsBlock{
			Type: "actions",
			Elements: []any{
				slack.NewButton(ActionIDRecordDay, "Save my response", "record_day"),
			},
		},
	)

	return blocks
}
