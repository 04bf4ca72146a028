package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/goodday/internal/middleware"
	"github.com/hitoshi/goodday/internal/model"
	"github.com/hitoshi/goodday/internal/repository"
)

// NotifyHandler は外部スケジューラ向けのプロンプト配信エンドポイント。
// 内蔵ワーカーの代わりに外部cronから叩くための入口。
type NotifyHandler struct {
	users   repository.UserRepository
	prompts PromptSender
	logger  *slog.Logger
}

// NewNotifyHandler はNotifyHandlerの新しいインスタンスを生成する。
func NewNotifyHandler(users repository.UserRepository, prompts PromptSender, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{
		users:   users,
		prompts: prompts,
		logger:  logger,
	}
}

// notifyRequest はPOST /notify のリクエストボディ。
type notifyRequest struct {
	UserID string `json:"user_id"`
}

// HandleNotify はPOST /notify を処理する。
// 指定ユーザーへ日次アンケートを即時配信する。
func (h *NotifyHandler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingUserIDError())
		return
	}

	ctx := r.Context()
	user, err := h.users.FindBySlackID(ctx, req.UserID)
	if err != nil {
		h.logger.Error("ユーザーの取得に失敗しました",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(req.UserID))
		return
	}

	if err := h.prompts.SendPrompt(ctx, user); err != nil {
		h.logger.Error("アンケートの配信に失敗しました",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
