package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/goodday/internal/model"
	"github.com/hitoshi/goodday/internal/repository"
	"github.com/hitoshi/goodday/internal/slack"
)

// UserInfoFetcher はSlackユーザープロフィールの取得インターフェース。
type UserInfoFetcher interface {
	GetUserInfo(ctx context.Context, userID string) (*slack.UserInfo, error)
}

// eventPayload はSlackイベントAPIのペイロードの必要部分。
type eventPayload struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Event     struct {
		Type    string `json:"type"`
		User    string `json:"user"`
		Channel string `json:"channel"`
	} `json:"event"`
}

// EventsHandler はSlackイベント（app_home_opened等）を処理する。
type EventsHandler struct {
	users    repository.UserRepository
	home     HomePublisher
	profiles UserInfoFetcher
	logger   *slog.Logger
}

// NewEventsHandler はEventsHandlerの新しいインスタンスを生成する。
func NewEventsHandler(users repository.UserRepository, home HomePublisher, profiles UserInfoFetcher, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		users:    users,
		home:     home,
		profiles: profiles,
		logger:   logger,
	}
}

// HandleEvent はPOST /slack/events を処理する。
// url_verificationにはchallengeをそのまま返す。app_home_openedでは
// ユーザー行をUPSERTし、タイムゾーンを補完してホームビューを公開する。
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var p eventPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if p.Type == "url_verification" {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(p.Challenge))
		return
	}

	if p.Event.Type != "app_home_opened" {
		// 購読していないイベントは受領だけして無視する
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	userID := p.Event.User
	if userID == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	patch := model.UserPatch{SlackID: userID}
	if p.Event.Channel != "" {
		patch.ChannelID = model.String(p.Event.Channel)
	}

	// タイムゾーンの補完はベストエフォート。取得失敗でもホーム表示は続行する
	if profile, err := h.profiles.GetUserInfo(ctx, userID); err != nil {
		h.logger.Warn("タイムゾーンの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else if profile.Timezone != "" {
		patch.Timezone = model.String(profile.Timezone)
	}

	if err := h.users.Upsert(ctx, patch); err != nil {
		h.logger.Error("ユーザーのUPSERTに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.home.PublishHome(ctx, userID); err != nil {
		h.logger.Error("ホームビューの公開に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
