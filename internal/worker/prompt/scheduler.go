// Package prompt は日次アンケートのバックグラウンド配信を提供する。
// 現地時刻がprompt_timeの時台に入ったユーザーへDMで設問を送る。
package prompt

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/goodday/internal/form"
	"github.com/hitoshi/goodday/internal/metrics"
	"github.com/hitoshi/goodday/internal/model"
	"github.com/hitoshi/goodday/internal/repository"
	"github.com/hitoshi/goodday/internal/slack"
)

// Messenger はプロンプト配信に必要なSlack操作のインターフェース。
type Messenger interface {
	PostMessage(ctx context.Context, channel string, blocks []slack.Block) error
	OpenConversation(ctx context.Context, userID string) (string, error)
}

// Scheduler は日次プロンプトのスケジューリングと並列制御を行う。
// 1時間間隔のティッカーで配信対象ユーザーを取得し、
// semaphoreパターンで最大並列数を制御しながら配信する。
type Scheduler struct {
	users          repository.UserRepository
	messenger      Messenger
	schema         *form.Schema
	logger         *slog.Logger
	collector      metrics.MetricsCollector
	maxConcurrency int

	// now はテストで現在時刻を差し替えるためのフック
	now func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。collectorはnil可。
func NewScheduler(
	users repository.UserRepository,
	messenger Messenger,
	schema *form.Schema,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Scheduler{
		users:          users,
		messenger:      messenger,
		schema:         schema,
		logger:         logger,
		collector:      collector,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("プロンプトスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("配信サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("プロンプトスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("配信サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は配信対象ユーザーを1回取得し、並列でプロンプトを配信する。
// ユーザー単位の失敗はログに記録するだけでサイクル全体は止めない。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	if s.collector != nil {
		s.collector.RecordPromptCycle()
	}

	users, err := s.users.ListDueForPrompt(ctx)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		s.logger.Info("配信対象のユーザーはいません")
		return nil
	}

	s.logger.Info("配信サイクルを開始します",
		slog.Int("user_count", len(users)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(u *model.User) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := s.SendPrompt(ctx, u); err != nil {
				if s.collector != nil {
					s.collector.RecordPromptFailure()
				}
				s.logger.Error("プロンプトの配信に失敗しました",
					slog.String("slack_id", u.SlackID),
					slog.String("error", err.Error()),
				)
				return
			}
			if s.collector != nil {
				s.collector.RecordPromptSent()
			}
		}(user)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("配信サイクルが完了しました",
		slog.Int("user_count", len(users)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// SendPrompt は1ユーザーへ日次アンケートをDMで配信する。
// チャンネルが未保存の場合はDMチャンネルを開いて使用する。
// 日付はユーザーのタイムゾーンの現在日。タイムゾーンが不正な場合はUTC。
func (s *Scheduler) SendPrompt(ctx context.Context, user *model.User) error {
	channel := user.ChannelID
	if channel == "" {
		opened, err := s.messenger.OpenConversation(ctx, user.SlackID)
		if err != nil {
			return err
		}
		channel = opened
	}

	loc := time.UTC
	if user.Timezone != "" {
		if parsed, err := time.LoadLocation(user.Timezone); err == nil {
			loc = parsed
		} else {
			s.logger.Warn("不明なタイムゾーンのためUTCで配信します",
				slog.String("slack_id", user.SlackID),
				slog.String("timezone", user.Timezone),
			)
		}
	}

	blocks := form.QuestionnaireBlocks(s.schema, s.now().In(loc))
	return s.messenger.PostMessage(ctx, channel, blocks)
}
