package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/goodday/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
// すべてのクエリはプレースホルダによるパラメータ化を行う。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindBySlackID は指定Slack IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindBySlackID(ctx context.Context, slackID string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT slackid, ghuser, ghrepo, timezone, prompt_time, channelid, is_unsubscribed
		 FROM users WHERE slackid = $1`,
		slackID,
	).Scan(&user.SlackID, &user.GHUser, &user.GHRepo, &user.Timezone,
		&user.PromptTime, &user.ChannelID, &user.IsUnsubscribed)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by slack ID: %w", err)
	}

	return user, nil
}

// Upsert はユーザーをUPSERTする。
// 行が存在しなければslackidのみの行を挿入し、その後nilでないフィールドだけを
// COALESCEで更新する。nilのフィールドは既存の値を維持する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, patch model.UserPatch) error {
	if patch.SlackID == "" {
		return fmt.Errorf("slack ID is required for upsert")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 行が存在しない場合のみidのみの行を挿入
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (slackid) VALUES ($1) ON CONFLICT (slackid) DO NOTHING`,
		patch.SlackID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user row: %w", err)
	}

	// nilでないフィールドのみ更新。NULLパラメータはCOALESCEで既存値に落ちる。
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET
			ghuser          = COALESCE($2, ghuser),
			ghrepo          = COALESCE($3, ghrepo),
			timezone        = COALESCE($4, timezone),
			prompt_time     = COALESCE($5, prompt_time),
			channelid       = COALESCE($6, channelid),
			is_unsubscribed = COALESCE($7, is_unsubscribed),
			updated_at      = now()
		 WHERE slackid = $1`,
		patch.SlackID,
		patch.GHUser, patch.GHRepo, patch.Timezone,
		patch.PromptTime, patch.ChannelID, patch.IsUnsubscribed,
	)
	if err != nil {
		return fmt.Errorf("failed to update user fields: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByRepo は指定の (owner, name) を登録しているユーザーを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByRepo(ctx context.Context, owner, name string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT slackid, ghuser, ghrepo, timezone, prompt_time, channelid, is_unsubscribed
		 FROM users WHERE ghuser = $1 AND ghrepo = $2 LIMIT 1`,
		owner, name,
	).Scan(&user.SlackID, &user.GHUser, &user.GHRepo, &user.Timezone,
		&user.PromptTime, &user.ChannelID, &user.IsUnsubscribed)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by repo: %w", err)
	}

	return user, nil
}

// ListDueForPrompt は現地時刻がprompt_timeの時台に一致する購読中のユーザーを返す。
// タイムゾーン未設定のユーザーはUTCとして扱う。
func (r *PostgresUserRepo) ListDueForPrompt(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT slackid, ghuser, ghrepo, timezone, prompt_time, channelid, is_unsubscribed
		 FROM users
		 WHERE prompt_time <> ''
		   AND is_unsubscribed = FALSE
		   AND extract(hour FROM now() AT TIME ZONE COALESCE(NULLIF(timezone, ''), 'UTC'))
		     = extract(hour FROM to_timestamp(prompt_time, 'HH24:MI'))`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users due for prompt: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.SlackID, &user.GHUser, &user.GHRepo, &user.Timezone,
			&user.PromptTime, &user.ChannelID, &user.IsUnsubscribed); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
