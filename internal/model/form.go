package model

// DateKey はFormResponseの日付カラムのキー名。CSVヘッダーの先頭カラムでもある。
const DateKey = "date"

// Question は日次アンケートの設問を表す。
// プロセス起動時に一度だけ構築され、以降イミュータブルとして扱う。
// 選択はOptionsのインデックスで行うため、Optionsの順序には意味がある。
type Question struct {
	ID          string
	Title       string // 絵文字ショートコード込みの原文タイトル
	Placeholder string
	Options     []string

	// DisplayTitle / DisplayOptions はショートコードをUnicode絵文字へ
	// 変換した表示用テキスト。構築時に一度だけ導出される。
	DisplayTitle   string
	DisplayOptions []string
}

// FormResponse は1ユーザー・1日分の回答を表す。
// 設問タイトルをキーとし、同一dateの再送信は行全体の置換となる。
type FormResponse struct {
	Date    string
	Answers map[string]string
	// Order は回答キーの列順。CSVヘッダー導出時にマップの反復順序へ
	// 依存しないための明示的な順序付け。
	Order []string
}

// NewFormResponse は空のFormResponseを生成する。
func NewFormResponse(date string) FormResponse {
	return FormResponse{
		Date:    date,
		Answers: make(map[string]string),
	}
}

// Set は回答を追加する。初出のキーはOrderの末尾に記録される。
func (r *FormResponse) Set(key, value string) {
	if _, exists := r.Answers[key]; !exists {
		r.Order = append(r.Order, key)
	}
	r.Answers[key] = value
}

// Columns はdateを先頭とした列名の並びを返す。
func (r *FormResponse) Columns() []string {
	cols := make([]string, 0, len(r.Order)+1)
	cols = append(cols, DateKey)
	cols = append(cols, r.Order...)
	return cols
}

// Get は列名に対応する値を返す。dateキーはDateフィールドを返す。
func (r *FormResponse) Get(column string) string {
	if column == DateKey {
		return r.Date
	}
	return r.Answers[column]
}
