// Package slack はSlack Web APIクライアントとBlock Kit記述子を提供する。
package slack

// Block はBlock Kitブロック記述子。構造体ごとにJSON形状が異なるためanyで扱う。
type Block = any

// TextObject はplain_text / mrkdwnのテキストオブジェクト。
type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// PlainText はplain_textのテキストオブジェクトを生成する。
func PlainText(text string) *TextObject {
	return &TextObject{Type: "plain_text", Text: text, Emoji: true}
}

// Markdown はmrkdwnのテキストオブジェクトを生成する。
func Markdown(text string) *TextObject {
	return &TextObject{Type: "mrkdwn", Text: text}
}

// HeaderBlock はheaderブロック。
type HeaderBlock struct {
	Type    string      `json:"type"`
	BlockID string      `json:"block_id,omitempty"`
	Text    *TextObject `json:"text"`
}

// NewHeader はheaderブロックを生成する。
func NewHeader(blockID, text string) *HeaderBlock {
	return &HeaderBlock{Type: "header", BlockID: blockID, Text: PlainText(text)}
}

// SectionBlock はsectionブロック。Accessoryには選択要素やボタンを置ける。
type SectionBlock struct {
	Type      string      `json:"type"`
	BlockID   string      `json:"block_id,omitempty"`
	Text      *TextObject `json:"text"`
	Accessory any         `json:"accessory,omitempty"`
}

// NewSection はmrkdwnテキストのsectionブロックを生成する。
func NewSection(text string) *SectionBlock {
	return &SectionBlock{Type: "section", Text: Markdown(text)}
}

// DividerBlock はdividerブロック。
type DividerBlock struct {
	Type    string `json:"type"`
	BlockID string `json:"block_id,omitempty"`
}

// NewDivider はdividerブロックを生成する。
func NewDivider() *DividerBlock {
	return &DividerBlock{Type: "divider"}
}

// InputBlock はinputブロック。dispatch_actionを有効にすると
// 入力確定時にインタラクションイベントが送信される。
type InputBlock struct {
	Type           string      `json:"type"`
	DispatchAction bool        `json:"dispatch_action,omitempty"`
	Element        any         `json:"element"`
	Label          *TextObject `json:"label"`
}

// ActionsBlock はactionsブロック。
type ActionsBlock struct {
	Type     string `json:"type"`
	BlockID  string `json:"block_id,omitempty"`
	Elements []any  `json:"elements"`
}

// ButtonElement はbutton要素。
type ButtonElement struct {
	Type     string      `json:"type"`
	ActionID string      `json:"action_id"`
	Text     *TextObject `json:"text"`
	Value    string      `json:"value,omitempty"`
	URL      string      `json:"url,omitempty"`
}

// NewButton はbutton要素を生成する。
func NewButton(actionID, text, value string) *ButtonElement {
	return &ButtonElement{Type: "button", ActionID: actionID, Text: PlainText(text), Value: value}
}

// OptionObject はstatic_selectの選択肢。Valueには選択インデックスを文字列で持つ。
type OptionObject struct {
	Text  *TextObject `json:"text"`
	Value string      `json:"value"`
}

// StaticSelectElement はstatic_select要素。
type StaticSelectElement struct {
	Type        string         `json:"type"`
	ActionID    string         `json:"action_id"`
	Placeholder *TextObject    `json:"placeholder,omitempty"`
	Options     []OptionObject `json:"options"`
}

// TimePickerElement はtimepicker要素。
type TimePickerElement struct {
	Type        string      `json:"type"`
	ActionID    string      `json:"action_id"`
	InitialTime string      `json:"initial_time,omitempty"`
	Placeholder *TextObject `json:"placeholder,omitempty"`
}

// PlainTextInputElement はplain_text_input要素。
type PlainTextInputElement struct {
	Type     string `json:"type"`
	ActionID string `json:"action_id"`
}
