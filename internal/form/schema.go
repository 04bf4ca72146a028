// Package form は日次アンケートの設問カタログと回答パースを提供する。
package form

import (
	"fmt"

	"github.com/enescakir/emoji"

	"github.com/hitoshi/goodday/internal/model"
)

// Schema はイミュータブルな設問カタログ。
// プロセス起動時に一度だけ構築し、パーサー・レンダラー・プロンプトワーカーへ
// 参照渡しする。モジュールレベルの可変状態は持たない。
type Schema struct {
	questions []model.Question
	byID      map[string]model.Question
}

// NewSchema は設問リストからSchemaを構築する。
// 構築時にショートコードをUnicode絵文字へ変換した表示用テキストを導出する。
// 設問IDの重複、または選択肢が空の設問がある場合はエラーを返す。
func NewSchema(questions []model.Question) (*Schema, error) {
	byID := make(map[string]model.Question, len(questions))
	resolved := make([]model.Question, 0, len(questions))

	for _, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question with empty ID: %q", q.Title)
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question ID: %s", q.ID)
		}
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("question %s has no options", q.ID)
		}

		q.DisplayTitle = emoji.Parse(q.Title)
		q.DisplayOptions = make([]string, len(q.Options))
		for i, opt := range q.Options {
			q.DisplayOptions[i] = emoji.Parse(opt)
		}

		byID[q.ID] = q
		resolved = append(resolved, q)
	}

	return &Schema{questions: resolved, byID: byID}, nil
}

// MustSchema はNewSchemaのエラーをpanicに変換する。静的カタログの構築専用。
func MustSchema(questions []model.Question) *Schema {
	s, err := NewSchema(questions)
	if err != nil {
		panic(err)
	}
	return s
}

// Questions は設問の並びを返す。返り値のスライスは変更してはならない。
func (s *Schema) Questions() []model.Question {
	return s.questions
}

// ByID は設問IDに対応する設問を返す。
func (s *Schema) ByID(id string) (model.Question, bool) {
	q, ok := s.byID[id]
	return q, ok
}

// DefaultSchema は標準の12問カタログでSchemaを構築する。
func DefaultSchema() *Schema {
	return MustSchema(defaultQuestions)
}

// defaultQuestions は日次アンケートの標準カタログ。
// 選択はインデックスで行うためOptionsの順序を変更してはならない。
var defaultQuestions = []model.Question{
	{
		ID:          "workday_quality",
		Title:       ":thinking_face: How was your workday?",
		Placeholder: "My workday was…",
		Options: []string{
			":sob: Terrible",
			":slightly_frowning_face: Bad",
			":neutral_face: OK",
			":slightly_smiling_face: Good",
			":heart_eyes: Awesome!",
		},
	},
	{
		ID:          "worked_with_other_people",
		Title:       ":busts_in_silhouette: I worked with other people…",
		Placeholder: "How much?",
		Options:     howMuchOptions,
	},
	{
		ID:          "helped_other_people",
		Title:       ":raised_hands: I helped other people…",
		Placeholder: "How much?",
		Options:     howMuchOptions,
	},
	{
		ID:          "interrupted",
		Title:       ":rotating_light: My work was interrupted…",
		Placeholder: "How much?",
		Options:     howMuchOptions,
	},
	{
		ID:          "goals",
		Title:       ":dart: I made progress towards my goals…",
		Placeholder: "How much?",
		Options:     howMuchOptions,
	},
	{
		ID:          "high_quality_work",
		Title:       ":sparkles: I did high-quality work…",
		Placeholder: "How much?",
		Options:     howMuchOptions,
	},
	{
		ID:          "lot_of_work",
		Title:       ":rocket: I did a lot of work…",
		Placeholder: "How much?",
		Options:     howMuchOptions,
	},
	{
		ID:          "breaks",
		Title:       ":coffee: I took breaks today…",
		Placeholder: "How often?",
		Options:     howMuchOptions,
	},
	{
		ID:          "meetings",
		Title:       ":speaking_head_in_silhouette: How many meetings did you have today?",
		Placeholder: "How many?",
		Options:     []string{"None", "1", "2", "3–4", "5 or more"},
	},
	{
		ID:          "emotions",
		Title:       ":thought_balloon: How do you feel about your workday?",
		Placeholder: "I feel…",
		Options: []string{
			":grimacing: Tense or nervous",
			":worried: Stressed or upset",
			":cry: Sad or depressed",
			":yawning_face: Bored",
			":relaxed: Calm or relaxed",
			":relieved: Serene or content",
			":slightly_smiling_face: Happy or elated",
			":grinning: Excited or alert",
		},
	},
	{
		ID:          "most_productive",
		Title:       ":chart_with_upwards_trend: Today, I felt *most* productive:",
		Placeholder: "When?",
		Options:     productiveOptions,
	},
	{
		ID:          "least_productive",
		Title:       ":chart_with_downwards_trend: Today, I felt *least* productive:",
		Placeholder: "When?",
		Options:     productiveOptions,
	},
}

var howMuchOptions = []string{
	"None of the day",
	"A little of the day",
	"Some of the day",
	"Much of the day",
	"Most or all of the day",
}

var productiveOptions = []string{
	":sunrise: In the morning (9:00–11:00)",
	":clock12: Mid-day (11:00-13:00)",
	":clock2: Early afternoon (13:00-15:00)",
	":clock5: Late afternoon (15:00-17:00)",
	":night_with_stars: Outside of typical work hours",
	":date: Equally throughout the day",
}
