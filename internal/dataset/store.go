package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hitoshi/goodday/internal/github"
	"github.com/hitoshi/goodday/internal/model"
)

// Ref はデータファイルの位置を表す。
type Ref struct {
	Owner string
	Repo  string
	Path  string
}

// ContentProvider はリモートblobの読み書きを提供するインターフェース。
// 本番ではgithub.Clientが実装し、テストではフェイクに差し替える。
type ContentProvider interface {
	GetContent(ctx context.Context, owner, repo, path string) (*github.FileContent, error)
	PutContent(ctx context.Context, owner, repo, path, message, content, sha string) error
}

// Store はデータファイルへのレコード保存を提供する。
// 書き込みは読み取り時のバージョントークン（sha）を条件とする楽観的並行制御で、
// 競合時はErrVersionConflictをそのまま返す。自動リトライは行わない。
type Store struct {
	provider      ContentProvider
	logger        *slog.Logger
	commitMessage string
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(provider ContentProvider, logger *slog.Logger, commitMessage string) *Store {
	return &Store{
		provider:      provider,
		logger:        logger,
		commitMessage: commitMessage,
	}
}

// UpsertRecord はレコードをデータファイルへ保存する。
//
// 同一日付の既存行は新しいレコードで置換されるため、同じ内容の再送信は
// 冪等となる。行は日付の昇順で並べ直され、ヘッダーは並べ替え後の先頭行の
// 列並びから再導出される。
//
// ファイルが存在しない場合はヘッダー込みで新規作成する（shaなしの書き込み）。
// 読み取りから書き込みの間に他の書き込みが入った場合はErrVersionConflictを返す。
func (s *Store) UpsertRecord(ctx context.Context, ref Ref, rec model.FormResponse) error {
	if rec.Date == "" {
		return fmt.Errorf("record has no date")
	}

	file, err := s.provider.GetContent(ctx, ref.Owner, ref.Repo, ref.Path)
	if err != nil {
		return fmt.Errorf("データファイルの取得に失敗しました: %w", err)
	}

	var records []model.FormResponse
	sha := ""
	if file != nil {
		sha = file.SHA
		for _, existing := range Decode(file.Content) {
			if existing.Date == rec.Date {
				continue
			}
			records = append(records, existing)
		}
	}
	records = append(records, rec)

	// ISO形式の日付は辞書順がそのまま時系列順になる
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})

	encoded := Encode(records)

	if err := s.provider.PutContent(ctx, ref.Owner, ref.Repo, ref.Path, s.commitMessage, encoded, sha); err != nil {
		return err
	}

	s.logger.Info("レコードを保存しました",
		slog.String("repo", ref.Owner+"/"+ref.Repo),
		slog.String("path", ref.Path),
		slog.String("date", rec.Date),
		slog.Int("total_records", len(records)),
	)
	return nil
}
