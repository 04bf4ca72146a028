// Package github はGitHub REST APIクライアントを提供する。
// データファイルの読み書き（contents API）とコラボレーター招待の操作のみを扱う。
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/goodday/internal/model"
)

// defaultBaseURL はGitHub REST APIのベースURL。
const defaultBaseURL = "https://api.github.com"

// StatusRecorder は外部APIのレスポンスステータスを記録するインターフェース。
// メトリクス収集用。nilの場合は記録しない。
type StatusRecorder interface {
	RecordProviderStatus(provider string, statusCode int)
}

// FileContent はcontents APIで取得したファイルの内容とバージョントークン。
// SHAは条件付き書き込みに使用する。
type FileContent struct {
	Content string
	SHA     string
}

// Invitation は保留中のリポジトリ招待。
type Invitation struct {
	ID       int64
	FullName string // owner/name 形式
}

// Client はGitHub REST APIのクライアント。
// 404（ファイル不在）は初回書き込みを意味するためエラーにせず、
// 409（sha不一致）はErrVersionConflictへ正規化する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	baseURL    string // テスト用にエンドポイントを差し替え可能
	metrics    StatusRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はGitHub本番APIを使用する。metricsはnil可。
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

// GetContent はリポジトリ内のファイルを取得する。
// ファイルが存在しない場合は (nil, nil) を返す。これは初回書き込みを
// 意味する正常系であり、リポジトリ不在とは区別される。
func (c *Client) GetContent(ctx context.Context, owner, repo, path string) (*FileContent, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, path)

	status, raw, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, &model.TransportError{Provider: "github", StatusCode: status, Message: string(raw)}
	}

	// contents APIはパスがディレクトリの場合に配列を返す
	if len(raw) > 0 && raw[0] == '[' {
		return nil, fmt.Errorf("path %s in %s/%s is a directory, not a file", path, owner, repo)
	}

	var body struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		// contents APIは改行を含むbase64を返すことがある
		decoded, err = base64.StdEncoding.DecodeString(stripNewlines(body.Content))
		if err != nil {
			return nil, fmt.Errorf("ファイル内容のbase64デコードに失敗しました: %w", err)
		}
	}

	return &FileContent{Content: string(decoded), SHA: body.SHA}, nil
}

// PutContent はファイルを作成または更新する。
// shaが空の場合は新規作成、非空の場合はそのバージョンからの更新を要求する。
// リモートのshaが一致しない場合はErrVersionConflictを返す。
func (c *Client) PutContent(ctx context.Context, owner, repo, path, message, content, sha string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, path)

	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
	}
	if sha != "" {
		payload["sha"] = sha
	}

	status, raw, err := c.do(ctx, http.MethodPut, url, payload)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		return nil
	case status == http.StatusConflict:
		c.logger.Warn("書き込みのバージョントークンが競合しました",
			slog.String("repo", owner+"/"+repo),
			slog.String("path", path),
		)
		return model.ErrVersionConflict
	case status == http.StatusNotFound:
		return &model.RepoNotFoundError{Owner: owner, Repo: repo}
	default:
		return &model.TransportError{Provider: "github", StatusCode: status, Message: string(raw)}
	}
}

// ListInvitations は認証ユーザー宛ての保留中リポジトリ招待を列挙する。
func (c *Client) ListInvitations(ctx context.Context) ([]Invitation, error) {
	url := c.baseURL + "/user/repository_invitations"

	status, raw, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &model.TransportError{Provider: "github", StatusCode: status, Message: string(raw)}
	}

	var body []struct {
		ID         int64 `json:"id"`
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	invitations := make([]Invitation, 0, len(body))
	for _, inv := range body {
		invitations = append(invitations, Invitation{ID: inv.ID, FullName: inv.Repository.FullName})
	}
	return invitations, nil
}

// AcceptInvitation は保留中のリポジトリ招待を受諾する。
func (c *Client) AcceptInvitation(ctx context.Context, invitationID int64) error {
	url := fmt.Sprintf("%s/user/repository_invitations/%d", c.baseURL, invitationID)

	status, raw, err := c.do(ctx, http.MethodPatch, url, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return &model.TransportError{Provider: "github", StatusCode: status, Message: string(raw)}
	}
	return nil
}

// ListCollaborators はリポジトリのコラボレーターのログイン名を列挙する。
func (c *Client) ListCollaborators(ctx context.Context, owner, repo string) ([]string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/collaborators", c.baseURL, owner, repo)

	status, raw, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, &model.RepoNotFoundError{Owner: owner, Repo: repo}
	}
	if status != http.StatusOK {
		return nil, &model.TransportError{Provider: "github", StatusCode: status, Message: string(raw)}
	}

	var body []struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	logins := make([]string, 0, len(body))
	for _, collab := range body {
		logins = append(logins, collab.Login)
	}
	return logins, nil
}

// IsCollaborator はloginがリポジトリのコラボレーターかどうかを返す。
func (c *Client) IsCollaborator(ctx context.Context, owner, repo, login string) (bool, error) {
	logins, err := c.ListCollaborators(ctx, owner, repo)
	if err != nil {
		return false, err
	}
	for _, l := range logins {
		if l == login {
			return true, nil
		}
	}
	return false, nil
}

// do はHTTPリクエストを送信し、ステータスコードとボディを返す。
// 4xx/5xxの解釈は呼び出し元に委ねる。通信自体の失敗のみTransportErrorにする。
func (c *Client) do(ctx context.Context, method, url string, payload map[string]any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "token "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("GitHub APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return 0, nil, &model.TransportError{Provider: "github", Message: err.Error()}
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordProviderStatus("github", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func stripNewlines(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			continue
		}
		buf = append(buf, s[i])
	}
	return string(buf)
}
