package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/goodday/internal/model"
)

// defaultBaseURL はSlack Web APIのベースURL。
const defaultBaseURL = "https://slack.com/api"

// StatusRecorder は外部APIのレスポンスステータスを記録するインターフェース。
// メトリクス収集用。nilの場合は記録しない。
type StatusRecorder interface {
	RecordProviderStatus(provider string, statusCode int)
}

// UserInfo はusers.infoから取得するユーザープロフィールの必要部分。
type UserInfo struct {
	ID       string
	Timezone string
}

// Client はSlack Web APIのクライアント。
// 配信の失敗はTransportErrorとして返し、リトライ判断は呼び出し元に委ねる。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	baseURL    string // テスト用にエンドポイントを差し替え可能
	metrics    StatusRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はSlack本番APIを使用する。metricsはnil可。
func NewClient(httpClient *http.Client, logger *slog.Logger, token, baseURL string, metrics StatusRecorder) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		token:      token,
		baseURL:    baseURL,
		metrics:    metrics,
	}
}

// apiResponse はSlack APIレスポンスの共通エンベロープ。
// SlackはHTTP 200でもok=falseでエラーを返すことがある。
type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PostMessage はチャンネルへブロックメッセージを投稿する。
func (c *Client) PostMessage(ctx context.Context, channel string, blocks []Block) error {
	body := map[string]any{
		"channel": channel,
		"blocks":  blocks,
	}
	_, err := c.call(ctx, "chat.postMessage", body, nil)
	return err
}

// PublishHomeView はユーザーのホームタブへビューを公開する。
func (c *Client) PublishHomeView(ctx context.Context, userID string, blocks []Block) error {
	body := map[string]any{
		"user_id": userID,
		"view": map[string]any{
			"type": "home",
			"title": map[string]any{
				"type": "plain_text",
				"text": "Good Day",
			},
			"blocks": blocks,
		},
	}
	_, err := c.call(ctx, "views.publish", body, nil)
	return err
}

// OpenConversation はユーザーとのDMチャンネルを開き、チャンネルIDを返す。
func (c *Client) OpenConversation(ctx context.Context, userID string) (string, error) {
	var result struct {
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	if _, err := c.call(ctx, "conversations.open", map[string]any{"users": userID}, &result); err != nil {
		return "", err
	}
	if result.Channel.ID == "" {
		return "", fmt.Errorf("conversations.open returned no channel for user %s", userID)
	}
	return result.Channel.ID, nil
}

// GetUserInfo はユーザーのプロフィール（タイムゾーン含む）を取得する。
// ロケール情報の取得失敗は呼び出し元で「タイムゾーン不明」として扱うこと。
func (c *Client) GetUserInfo(ctx context.Context, userID string) (*UserInfo, error) {
	var result struct {
		User struct {
			ID string `json:"id"`
			TZ string `json:"tz"`
		} `json:"user"`
	}
	body := map[string]any{
		"user":           userID,
		"include_locale": true,
	}
	if _, err := c.call(ctx, "users.info", body, &result); err != nil {
		return nil, err
	}
	return &UserInfo{ID: result.User.ID, Timezone: result.User.TZ}, nil
}

// call はSlack Web APIメソッドをJSON POSTで呼び出す。
// HTTPエラーとok=falseの両方をTransportErrorへ正規化する。
// outが非nilの場合はレスポンスボディをデコードして書き込む。
func (c *Client) call(ctx context.Context, method string, body map[string]any, out any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Slack APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, &model.TransportError{Provider: "slack", Message: err.Error()}
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordProviderStatus("slack", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Slack APIがエラーステータスを返しました",
			slog.String("method", method),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &model.TransportError{
			Provider:   "slack",
			StatusCode: resp.StatusCode,
			Message:    string(raw),
		}
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if !envelope.OK {
		c.logger.Error("Slack APIがok=falseを返しました",
			slog.String("method", method),
			slog.String("slack_error", envelope.Error),
		)
		return nil, &model.TransportError{
			Provider:   "slack",
			StatusCode: resp.StatusCode,
			Message:    envelope.Error,
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
		}
	}

	return raw, nil
}
