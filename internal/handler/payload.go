// Package handler はSlack連携のHTTPエンドポイントを提供する。
package handler

import (
	"encoding/json"
	"fmt"
)

// interactionPayload はSlackインタラクションのペイロードの必要部分。
// urlencodedフォームのpayloadフィールドにJSONとして入っている。
type interactionPayload struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Actions []struct {
		ActionID     string `json:"action_id"`
		Value        string `json:"value"`
		SelectedTime string `json:"selected_time"`
	} `json:"actions"`
	Message struct {
		Blocks []struct {
			BlockID string `json:"block_id"`
		} `json:"blocks"`
	} `json:"message"`
	State struct {
		Values map[string]map[string]struct {
			SelectedOption struct {
				Value string `json:"value"`
			} `json:"selected_option"`
		} `json:"values"`
	} `json:"state"`
}

// decodeInteractionPayload はpayloadフィールドのJSONをデコードする。
func decodeInteractionPayload(raw string) (*interactionPayload, error) {
	if raw == "" {
		return nil, fmt.Errorf("payload is empty")
	}
	var p interactionPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("ペイロードJSONのパースに失敗しました: %w", err)
	}
	return &p, nil
}

// actionID は最初のアクションのIDを返す。アクションがない場合は空文字。
func (p *interactionPayload) actionID() string {
	if len(p.Actions) == 0 {
		return ""
	}
	return p.Actions[0].ActionID
}

// selection はstate.valuesを「設問ID -> 選択値」のフラットなマップへ変換する。
// 未選択の設問（selected_optionが空）は含めない。ブロックIDの階層は捨てる。
func (p *interactionPayload) selection() map[string]string {
	flat := make(map[string]string)
	for _, actions := range p.State.Values {
		for actionID, state := range actions {
			if state.SelectedOption.Value == "" {
				continue
			}
			flat[actionID] = state.SelectedOption.Value
		}
	}
	return flat
}

// recordDate はメッセージ先頭ブロックのblock_idから記録対象日を読み取る。
// 日次アンケートはheaderブロックのblock_idにISO形式の日付を持つ。
func (p *interactionPayload) recordDate() string {
	for _, b := range p.Message.Blocks {
		if b.BlockID != "" {
			return b.BlockID
		}
	}
	return ""
}
