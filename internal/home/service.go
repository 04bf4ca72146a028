package home

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/goodday/internal/model"
	"github.com/hitoshi/goodday/internal/repository"
	"github.com/hitoshi/goodday/internal/slack"
)

// ViewPublisher はホームビューの公開を提供するインターフェース。
// 本番ではslack.Clientが実装する。
type ViewPublisher interface {
	PublishHomeView(ctx context.Context, userID string, blocks []Block) error
}

// Block はslackパッケージのブロック型の別名。
type Block = slack.Block

// Service はホームビューの解決・描画・公開をまとめる。
type Service struct {
	users             repository.UserRepository
	resolver          *Resolver
	publisher         ViewPublisher
	logger            *slog.Logger
	botLogin          string
	defaultPromptTime string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository, resolver *Resolver, publisher ViewPublisher, logger *slog.Logger, botLogin, defaultPromptTime string) *Service {
	return &Service{
		users:             users,
		resolver:          resolver,
		publisher:         publisher,
		logger:            logger,
		botLogin:          botLogin,
		defaultPromptTime: defaultPromptTime,
	}
}

// PublishHome はユーザーの現在状態を解決してホームビューを公開する。
// 未知のユーザーにはリポジトリ未設定の初期ビューを表示する。
func (s *Service) PublishHome(ctx context.Context, slackID string) error {
	user, err := s.users.FindBySlackID(ctx, slackID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	state, err := s.resolver.ResolveState(ctx, user)
	if err != nil {
		return fmt.Errorf("オンボーディング状態の解決に失敗しました: %w", err)
	}

	return s.PublishHomeState(ctx, slackID, user, state)
}

// PublishHomeState は指定の状態でホームビューを公開する。
// 入力検証エラー（HomeStateInvalidRepo）のように解決を経ずに状態が
// 確定している場合に使用する。
func (s *Service) PublishHomeState(ctx context.Context, slackID string, user *model.User, state model.HomeState) error {
	blocks := Render(user, state, s.botLogin, s.defaultPromptTime)
	if err := s.publisher.PublishHomeView(ctx, slackID, blocks); err != nil {
		return fmt.Errorf("ホームビューの公開に失敗しました: %w", err)
	}

	s.logger.Info("ホームビューを公開しました",
		slog.String("slack_id", slackID),
		slog.String("state", string(state)),
	)
	return nil
}
