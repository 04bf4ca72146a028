package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/goodday/internal/dataset"
	"github.com/hitoshi/goodday/internal/form"
	"github.com/hitoshi/goodday/internal/home"
	"github.com/hitoshi/goodday/internal/metrics"
	"github.com/hitoshi/goodday/internal/middleware"
	"github.com/hitoshi/goodday/internal/model"
	"github.com/hitoshi/goodday/internal/repository"
	"github.com/hitoshi/goodday/internal/slack"
)

// RecordStore はレコード保存のインターフェース。
type RecordStore interface {
	UpsertRecord(ctx context.Context, ref dataset.Ref, rec model.FormResponse) error
}

// StateResolver はオンボーディング状態の解決インターフェース。
type StateResolver interface {
	ResolveState(ctx context.Context, user *model.User) (model.HomeState, error)
}

// HomePublisher はホームビューの公開インターフェース。
type HomePublisher interface {
	PublishHome(ctx context.Context, slackID string) error
	PublishHomeState(ctx context.Context, slackID string, user *model.User, state model.HomeState) error
}

// Messenger はDM送信のインターフェース。
type Messenger interface {
	PostMessage(ctx context.Context, channel string, blocks []slack.Block) error
	OpenConversation(ctx context.Context, userID string) (string, error)
}

// PromptSender は日次アンケートの即時配信インターフェース。
// ワーカーのスケジューラが実装する。
type PromptSender interface {
	SendPrompt(ctx context.Context, user *model.User) error
}

// InteractiveHandlerDeps はInteractiveHandlerの依存関係をまとめた構造体。
type InteractiveHandlerDeps struct {
	Users        repository.UserRepository
	Store        RecordStore
	Schema       *form.Schema
	Resolver     StateResolver
	Home         HomePublisher
	Messenger    Messenger
	Prompts      PromptSender
	Limiter      *middleware.RateLimiter
	Collector    metrics.MetricsCollector
	Logger       *slog.Logger
	BotLogin     string
	DataFilePath string
}

// InteractiveHandler はSlackインタラクション（ボタン、選択、入力）を処理する。
type InteractiveHandler struct {
	deps InteractiveHandlerDeps
}

// NewInteractiveHandler はInteractiveHandlerの新しいインスタンスを生成する。
func NewInteractiveHandler(deps InteractiveHandlerDeps) *InteractiveHandler {
	return &InteractiveHandler{deps: deps}
}

// HandleInteraction はPOST /slack/interactive を処理する。
// urlencodedのpayloadフィールドをデコードし、アクションIDで分岐する。
// SlackユーザーIDはペイロードの中にあるため、レート制限はデコード後に行う。
func (h *InteractiveHandler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	p, err := decodeInteractionPayload(r.FormValue("payload"))
	if err != nil {
		h.deps.Logger.Warn("インタラクションペイロードを解析できません",
			slog.String("error", err.Error()),
		)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	userID := p.User.ID
	if userID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingUserIDError())
		return
	}

	if h.deps.Limiter != nil && !h.deps.Limiter.Allow(userID) {
		h.deps.Logger.Warn("rate limit exceeded", slog.String("user_id", userID))
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	ctx := r.Context()
	actionID := p.actionID()

	h.deps.Logger.Info("インタラクションを受信しました",
		slog.String("user_id", userID),
		slog.String("action_id", actionID),
	)

	switch actionID {
	case home.ActionIDRepoInput:
		h.handleRepoInput(ctx, w, p)
	case home.ActionIDTimePicker:
		h.handleTimePicker(ctx, w, p)
	case home.ActionIDCheckRepo:
		h.handleCheckRepo(ctx, w, p)
	case form.ActionIDRecordDay:
		h.handleRecordDay(ctx, w, p)
	case home.ActionIDSubscribeToggle:
		h.handleSubscribeToggle(ctx, w, p)
	case home.ActionIDTriggerPrompt:
		h.handleTriggerPrompt(ctx, w, p)
	default:
		// 未知のアクションは無視してSlackへは成功を返す
		h.deps.Logger.Warn("未知のアクションIDです", slog.String("action_id", actionID))
		w.WriteHeader(http.StatusOK)
	}
}

// handleRepoInput はリポジトリURL入力を処理する。
// 解析できない入力はエラーをホームビューに表示し、Slackへは200を返す。
// 他ユーザーが登録済みのリポジトリは保存しない。
func (h *InteractiveHandler) handleRepoInput(ctx context.Context, w http.ResponseWriter, p *interactionPayload) {
	userID := p.User.ID
	input := p.Actions[0].Value

	user, err := h.deps.Users.FindBySlackID(ctx, userID)
	if err != nil {
		h.serverError(w, "ユーザーの取得に失敗しました", err)
		return
	}

	owner, name, err := home.ParseRepoInput(input)
	if err != nil {
		if err := h.deps.Home.PublishHomeState(ctx, userID, user, model.HomeStateInvalidRepo); err != nil {
			h.serverError(w, "ホームビューの公開に失敗しました", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	claimant, err := h.deps.Users.FindByRepo(ctx, owner, name)
	if err != nil {
		h.serverError(w, "リポジトリ登録の確認に失敗しました", err)
		return
	}
	if claimant != nil && claimant.SlackID != userID {
		if err := h.deps.Home.PublishHomeState(ctx, userID, user, model.HomeStateRepoClaimed); err != nil {
			h.serverError(w, "ホームビューの公開に失敗しました", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	patch := model.UserPatch{
		SlackID: userID,
		GHUser:  model.String(owner),
		GHRepo:  model.String(name),
	}
	if err := h.deps.Users.Upsert(ctx, patch); err != nil {
		h.serverError(w, "リポジトリの保存に失敗しました", err)
		return
	}

	if err := h.deps.Home.PublishHome(ctx, userID); err != nil {
		h.serverError(w, "ホームビューの公開に失敗しました", err)
		return
	}

	// DMで招待手順を案内する。失敗してもホーム側に同じ案内があるため致命的ではない
	if channel, err := h.channelFor(ctx, userID); err == nil {
		blocks := home.RepoCheckPromptMessage(owner, name, h.deps.BotLogin)
		if err := h.deps.Messenger.PostMessage(ctx, channel, blocks); err != nil {
			h.deps.Logger.Warn("案内メッセージの送信に失敗しました",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// handleTimePicker はプロンプト時刻の変更を処理する。
func (h *InteractiveHandler) handleTimePicker(ctx context.Context, w http.ResponseWriter, p *interactionPayload) {
	userID := p.User.ID
	selected := p.Actions[0].SelectedTime
	if selected == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	patch := model.UserPatch{
		SlackID:    userID,
		PromptTime: model.String(selected),
	}
	if err := h.deps.Users.Upsert(ctx, patch); err != nil {
		h.serverError(w, "プロンプト時刻の保存に失敗しました", err)
		return
	}

	if channel, err := h.channelFor(ctx, userID); err == nil {
		blocks := []slack.Block{
			slack.NewSection(fmt.Sprintf("Got it! I'll check in with you at %s.", selected)),
		}
		if err := h.deps.Messenger.PostMessage(ctx, channel, blocks); err != nil {
			h.deps.Logger.Warn("確認メッセージの送信に失敗しました",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// handleCheckRepo は「ボットを招待した」ボタンを処理する。
// 状態を解決し直し（保留中の招待はここで受諾される）、結果をDMで知らせる。
func (h *InteractiveHandler) handleCheckRepo(ctx context.Context, w http.ResponseWriter, p *interactionPayload) {
	userID := p.User.ID

	user, err := h.deps.Users.FindBySlackID(ctx, userID)
	if err != nil {
		h.serverError(w, "ユーザーの取得に失敗しました", err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(userID))
		return
	}

	state, err := h.deps.Resolver.ResolveState(ctx, user)
	if err != nil {
		h.serverError(w, "オンボーディング状態の解決に失敗しました", err)
		return
	}

	if err := h.deps.Home.PublishHomeState(ctx, userID, user, state); err != nil {
		h.serverError(w, "ホームビューの公開に失敗しました", err)
		return
	}

	var blocks []slack.Block
	if state == model.HomeStateSetupComplete {
		blocks = home.SetupCompleteMessage()
	} else {
		blocks = home.PermissionsMessage(h.deps.BotLogin)
	}
	if channel, err := h.channelFor(ctx, userID); err == nil {
		if err := h.deps.Messenger.PostMessage(ctx, channel, blocks); err != nil {
			h.deps.Logger.Warn("確認結果メッセージの送信に失敗しました",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// handleRecordDay は日次アンケートの保存を処理する。
// 保存に失敗した場合は保存済みとして応答してはならない。競合や通信失敗は
// エラーステータスで応答し、ユーザーへは再送を促すメッセージを送る。
func (h *InteractiveHandler) handleRecordDay(ctx context.Context, w http.ResponseWriter, p *interactionPayload) {
	userID := p.User.ID

	date := p.recordDate()
	if date == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	user, err := h.deps.Users.FindBySlackID(ctx, userID)
	if err != nil {
		h.serverError(w, "ユーザーの取得に失敗しました", err)
		return
	}
	if user == nil || !user.HasRepo() {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(userID))
		return
	}

	rec := h.deps.Schema.ParseResponse(date, p.selection())
	ref := dataset.Ref{Owner: user.GHUser, Repo: user.GHRepo, Path: h.deps.DataFilePath}

	if err := h.deps.Store.UpsertRecord(ctx, ref, rec); err != nil {
		h.recordFailure(ctx, w, user, err)
		return
	}

	if h.deps.Collector != nil {
		h.deps.Collector.RecordRecordSaved()
	}

	if channel, err := h.channelFor(ctx, userID); err == nil {
		if err := h.deps.Messenger.PostMessage(ctx, channel, home.FormSuccessMessage()); err != nil {
			h.deps.Logger.Warn("成功メッセージの送信に失敗しました",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// recordFailure は保存失敗をエラーステータスへ変換し、ユーザーへ再送を促す。
func (h *InteractiveHandler) recordFailure(ctx context.Context, w http.ResponseWriter, user *model.User, err error) {
	h.deps.Logger.Error("レコードの保存に失敗しました",
		slog.String("user_id", user.SlackID),
		slog.String("error", err.Error()),
	)

	if channel, dmErr := h.channelFor(ctx, user.SlackID); dmErr == nil {
		if postErr := h.deps.Messenger.PostMessage(ctx, channel, home.TryAgainMessage()); postErr != nil {
			h.deps.Logger.Warn("再送案内メッセージの送信に失敗しました",
				slog.String("user_id", user.SlackID),
				slog.String("error", postErr.Error()),
			)
		}
	}

	var transport *model.TransportError
	var notFound *model.RepoNotFoundError
	switch {
	case errors.Is(err, model.ErrVersionConflict):
		if h.deps.Collector != nil {
			h.deps.Collector.RecordVersionConflict()
		}
		middleware.WriteErrorResponse(w, http.StatusConflict, &model.APIError{
			Code:     model.ErrCodeVersionConflict,
			Message:  "保存先のファイルが更新されています。",
			Category: "store",
			Action:   "もう一度保存ボタンを押してください。",
		})
	case errors.As(err, &notFound):
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeRepoNotFound,
			Message:  notFound.Error(),
			Category: "store",
			Action:   "リポジトリの設定を確認してください。",
		})
	case errors.As(err, &transport):
		middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     model.ErrCodeTransport,
			Message:  transport.Error(),
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
	default:
		middleware.WriteInternalServerError(w)
	}
}

// handleSubscribeToggle は日次プロンプトの購読状態を反転する。
func (h *InteractiveHandler) handleSubscribeToggle(ctx context.Context, w http.ResponseWriter, p *interactionPayload) {
	userID := p.User.ID

	user, err := h.deps.Users.FindBySlackID(ctx, userID)
	if err != nil {
		h.serverError(w, "ユーザーの取得に失敗しました", err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(userID))
		return
	}

	patch := model.UserPatch{
		SlackID:        userID,
		IsUnsubscribed: model.Bool(!user.IsUnsubscribed),
	}
	if err := h.deps.Users.Upsert(ctx, patch); err != nil {
		h.serverError(w, "購読状態の保存に失敗しました", err)
		return
	}

	if err := h.deps.Home.PublishHome(ctx, userID); err != nil {
		h.serverError(w, "ホームビューの公開に失敗しました", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleTriggerPrompt は日次アンケートの即時配信を処理する。
func (h *InteractiveHandler) handleTriggerPrompt(ctx context.Context, w http.ResponseWriter, p *interactionPayload) {
	userID := p.User.ID

	user, err := h.deps.Users.FindBySlackID(ctx, userID)
	if err != nil {
		h.serverError(w, "ユーザーの取得に失敗しました", err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(userID))
		return
	}

	if err := h.deps.Prompts.SendPrompt(ctx, user); err != nil {
		h.serverError(w, "アンケートの配信に失敗しました", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// channelFor はユーザーへのDMチャンネルIDを返す。
// 保存済みのチャンネルがあればそれを使い、なければDMを開く。
func (h *InteractiveHandler) channelFor(ctx context.Context, userID string) (string, error) {
	user, err := h.deps.Users.FindBySlackID(ctx, userID)
	if err == nil && user != nil && user.ChannelID != "" {
		return user.ChannelID, nil
	}
	return h.deps.Messenger.OpenConversation(ctx, userID)
}

// serverError は内部エラーをログに記録し、統一フォーマットで500を返す。
func (h *InteractiveHandler) serverError(w http.ResponseWriter, message string, err error) {
	h.deps.Logger.Error(message, slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
