// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/goodday/internal/config"
	"github.com/hitoshi/goodday/internal/database"
	"github.com/hitoshi/goodday/internal/dataset"
	"github.com/hitoshi/goodday/internal/form"
	"github.com/hitoshi/goodday/internal/github"
	"github.com/hitoshi/goodday/internal/handler"
	"github.com/hitoshi/goodday/internal/home"
	"github.com/hitoshi/goodday/internal/logger"
	"github.com/hitoshi/goodday/internal/metrics"
	"github.com/hitoshi/goodday/internal/middleware"
	"github.com/hitoshi/goodday/internal/repository"
	"github.com/hitoshi/goodday/internal/slack"
	"github.com/hitoshi/goodday/internal/worker/prompt"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. 外部APIクライアントの初期化
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	slackClient := slack.NewClient(httpClient, slog.Default(), cfg.SlackBotToken, cfg.SlackAPIBaseURL, collector)
	githubClient := github.NewClient(httpClient, slog.Default(), cfg.GitHubAPIKey, cfg.GitHubAPIBaseURL, collector)

	// 4. リポジトリとドメインサービスの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	store := dataset.NewStore(githubClient, slog.Default(), cfg.CommitMessage)
	schema := form.DefaultSchema()

	resolver := home.NewResolver(userRepo, githubClient, slog.Default(), cfg.BotGitHubLogin)
	homeService := home.NewService(userRepo, resolver, slackClient, slog.Default(), cfg.BotGitHubLogin, cfg.DefaultPromptTime)

	// 即時配信（trigger_prompt、/notify）にはワーカーと同じ配信ロジックを使う
	sender := prompt.NewScheduler(userRepo, slackClient, schema, slog.Default(), collector, cfg.PromptMaxConcurrent)

	// 5. レートリミッターの初期化
	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitInteractive))
	defer limiter.Stop()

	// 6. ハンドラーとルーターの構築
	interactive := handler.NewInteractiveHandler(handler.InteractiveHandlerDeps{
		Users:        userRepo,
		Store:        store,
		Schema:       schema,
		Resolver:     resolver,
		Home:         homeService,
		Messenger:    slackClient,
		Prompts:      sender,
		Limiter:      limiter,
		Collector:    collector,
		Logger:       slog.Default(),
		BotLogin:     cfg.BotGitHubLogin,
		DataFilePath: cfg.DataFilePath,
	})
	events := handler.NewEventsHandler(userRepo, homeService, slackClient, slog.Default())
	notify := handler.NewNotifyHandler(userRepo, sender, slog.Default())

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      slog.Default(),
		Interactive: interactive,
		Events:      events,
		Notify:      notify,
		DB:          db,
		Gatherer:    registry,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、日次プロンプトのスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. メトリクスとクライアントの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	slackClient := slack.NewClient(httpClient, slog.Default(), cfg.SlackBotToken, cfg.SlackAPIBaseURL, collector)

	// 3. スケジューラの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	scheduler := prompt.NewScheduler(
		userRepo, slackClient, form.DefaultSchema(),
		slog.Default(), collector, cfg.PromptMaxConcurrent,
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("prompt_interval", cfg.PromptInterval),
		slog.Int("max_concurrent", cfg.PromptMaxConcurrent),
	)

	// プロンプトスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.PromptInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
