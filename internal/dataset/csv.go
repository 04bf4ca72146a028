// Package dataset はユーザーリポジトリ内のデータファイルの読み書きを提供する。
// ファイルは追記型のカンマ区切りテーブルで、1行が1日分の回答に対応する。
package dataset

import (
	"strings"

	"github.com/hitoshi/goodday/internal/model"
)

// Encode はレコード列をカンマ区切りテキストへ変換する。
// ヘッダー行は先頭レコードの列並びから導出し、末尾に改行を付ける。
// 値は引用符で囲まない。引用符付きの形式は既存ファイルとの互換性を壊す。
// 列名からはパース時にカンマが除去されている前提。
func Encode(records []model.FormResponse) string {
	if len(records) == 0 {
		return ""
	}

	columns := records[0].Columns()

	var b strings.Builder
	b.WriteString(strings.Join(columns, ","))
	b.WriteByte('\n')

	for _, rec := range records {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = rec.Get(col)
		}
		b.WriteString(strings.Join(values, ","))
		b.WriteByte('\n')
	}

	return b.String()
}

// Decode はカンマ区切りテキストをレコード列へ変換する。
// 先頭行をヘッダーとして解釈し、空行は無視する。
// 列数が足りない行は残りを空値として扱う。
func Decode(data string) []model.FormResponse {
	lines := strings.Split(data, "\n")
	if len(lines) == 0 {
		return nil
	}

	header := strings.Split(lines[0], ",")
	if len(header) == 0 || header[0] != model.DateKey {
		return nil
	}

	var records []model.FormResponse
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		values := strings.Split(line, ",")

		rec := model.NewFormResponse(values[0])
		for i, col := range header[1:] {
			if i+1 < len(values) {
				rec.Set(col, values[i+1])
			} else {
				rec.Set(col, "")
			}
		}
		records = append(records, rec)
	}

	return records
}
