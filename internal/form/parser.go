package form

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/hitoshi/goodday/internal/model"
)

// NotApplicable は選択されなかった設問に記録されるセンチネル値。
// 部分的な送信でも送信全体を失敗させず、欠けたフィールドだけを埋める。
const NotApplicable = "N/A"

// ParseResponse は生の選択状態（設問ID -> 選択インデックスの文字列）を
// 設問タイトルをキーとするFormResponseへ変換する。
//
// 純粋関数であり、I/Oを行わず決定的に動作する（ログ診断を除く）。
//   - スキーマに存在しない設問IDはスキーマドリフトとみなし、
//     診断を出してスキップする。誤ったキーへのマッピングは行わない。
//   - インデックスが不正または範囲外の場合はNotApplicableを記録する。
//   - キーはタイトルの表示テキストからカンマを除去したもの。
//     カンマ区切りのシリアライズ形式を壊さないための不変条件。
//   - dateは入力をそのまま出力に含める。
//
// 出力のキー順はスキーマの設問順に従い、マップの反復順序には依存しない。
func (s *Schema) ParseResponse(date string, selection map[string]string) model.FormResponse {
	rec := model.NewFormResponse(date)

	for id := range selection {
		if _, known := s.byID[id]; !known {
			slog.Warn("選択状態に未知の設問IDが含まれています（スキップ）",
				slog.String("field_id", id),
			)
		}
	}

	// スキーマ順で走査し、選択状態に現れた設問のみを記録する
	for _, q := range s.questions {
		raw, present := selection[q.ID]
		if !present {
			continue
		}

		key := strings.ReplaceAll(q.DisplayTitle, ",", "")

		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 || idx >= len(q.DisplayOptions) {
			rec.Set(key, NotApplicable)
			continue
		}
		rec.Set(key, q.DisplayOptions[idx])
	}

	return rec
}
