// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Slack
	SlackBotToken   string
	SlackAPIBaseURL string

	// GitHub
	GitHubAPIKey     string
	GitHubAPIBaseURL string
	BotGitHubLogin   string

	// Dataset
	DataFilePath  string
	CommitMessage string

	// Prompt worker
	PromptInterval      time.Duration
	PromptMaxConcurrent int
	DefaultPromptTime   string

	// Rate Limit（req/min/user）
	RateLimitInteractive int

	// HTTP
	HTTPTimeout time.Duration
	ServerPort  string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	if cfg.SlackBotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}

	cfg.GitHubAPIKey = os.Getenv("GITHUB_API_KEY")
	if cfg.GitHubAPIKey == "" {
		missing = append(missing, "GITHUB_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SlackAPIBaseURL = getEnvString("SLACK_API_BASE_URL", "https://slack.com/api")
	cfg.GitHubAPIBaseURL = getEnvString("GITHUB_API_BASE_URL", "https://api.github.com")
	cfg.BotGitHubLogin = getEnvString("BOT_GITHUB_LOGIN", "good-day-bot")
	cfg.DataFilePath = getEnvString("DATA_FILE_PATH", "good-day.csv")
	cfg.CommitMessage = getEnvString("COMMIT_MESSAGE", "Good Day update")
	cfg.PromptInterval = getEnvDuration("PROMPT_INTERVAL", time.Hour)
	cfg.PromptMaxConcurrent = getEnvInt("PROMPT_MAX_CONCURRENT", 10)
	cfg.DefaultPromptTime = getEnvString("DEFAULT_PROMPT_TIME", "16:00")
	cfg.RateLimitInteractive = getEnvInt("RATE_LIMIT_INTERACTIVE", 60)
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
