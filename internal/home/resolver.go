package home

import (
	"context"
	"log/slog"

	"github.com/hitoshi/goodday/internal/github"
	"github.com/hitoshi/goodday/internal/model"
	"github.com/hitoshi/goodday/internal/repository"
)

// CollaborationChecker はボットのリポジトリアクセス状態を確認する
// インターフェース。本番ではgithub.Clientが実装する。
type CollaborationChecker interface {
	ListInvitations(ctx context.Context) ([]github.Invitation, error)
	AcceptInvitation(ctx context.Context, invitationID int64) error
	IsCollaborator(ctx context.Context, owner, repo, login string) (bool, error)
}

// Resolver はユーザーのオンボーディング状態を導出する。
type Resolver struct {
	users    repository.UserRepository
	checker  CollaborationChecker
	logger   *slog.Logger
	botLogin string
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(users repository.UserRepository, checker CollaborationChecker, logger *slog.Logger, botLogin string) *Resolver {
	return &Resolver{
		users:    users,
		checker:  checker,
		logger:   logger,
		botLogin: botLogin,
	}
}

// ResolveState はユーザーの現在のオンボーディング状態を返す。
//
// 優先順位は「リポジトリ未設定 > 他ユーザーが登録済み > ボット未招待 >
// 設定完了」。不正なリポジトリ入力の状態（HomeStateInvalidRepo）は保存前の
// 入力検証でのみ発生するため、ここでは導出されず呼び出し元が直接指定する。
//
// 保存済みリポジトリに対する保留中の招待があれば、コラボレーター確認の前に
// 受諾する。招待一覧やコラボレーター確認の通信失敗は「招待待ち」とみなし、
// エラーにはしない。設定完了の誤表示よりも安全側に倒す。
func (r *Resolver) ResolveState(ctx context.Context, user *model.User) (model.HomeState, error) {
	if user == nil || !user.HasRepo() {
		return model.HomeStateNoRepo, nil
	}

	claimant, err := r.users.FindByRepo(ctx, user.GHUser, user.GHRepo)
	if err != nil {
		return "", err
	}
	if claimant != nil && claimant.SlackID != user.SlackID {
		return model.HomeStateRepoClaimed, nil
	}

	if err := r.acceptPendingInvitation(ctx, user); err != nil {
		r.logger.Warn("招待の確認に失敗しました",
			slog.String("slack_id", user.SlackID),
			slog.String("repo", user.GHUser+"/"+user.GHRepo),
			slog.String("error", err.Error()),
		)
		return model.HomeStateInviteBot, nil
	}

	ok, err := r.checker.IsCollaborator(ctx, user.GHUser, user.GHRepo, r.botLogin)
	if err != nil {
		r.logger.Warn("コラボレーターの確認に失敗しました",
			slog.String("slack_id", user.SlackID),
			slog.String("repo", user.GHUser+"/"+user.GHRepo),
			slog.String("error", err.Error()),
		)
		return model.HomeStateInviteBot, nil
	}
	if !ok {
		return model.HomeStateInviteBot, nil
	}

	return model.HomeStateSetupComplete, nil
}

// acceptPendingInvitation はユーザーのリポジトリ宛ての保留中招待を受諾する。
// 他リポジトリ宛ての招待には触れない。
func (r *Resolver) acceptPendingInvitation(ctx context.Context, user *model.User) error {
	invitations, err := r.checker.ListInvitations(ctx)
	if err != nil {
		return err
	}

	fullName := user.GHUser + "/" + user.GHRepo
	for _, inv := range invitations {
		if inv.FullName != fullName {
			continue
		}
		if err := r.checker.AcceptInvitation(ctx, inv.ID); err != nil {
			return err
		}
		r.logger.Info("リポジトリ招待を受諾しました",
			slog.String("repo", fullName),
			slog.Int64("invitation_id", inv.ID),
		)
		return nil
	}
	return nil
}
