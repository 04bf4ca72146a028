package dataset

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/hitoshi/goodday/internal/github"
	"github.com/hitoshi/goodday/internal/model"
)

// fakeProvider はContentProviderのテスト用実装。
type fakeProvider struct {
	getFunc func(ctx context.Context, owner, repo, path string) (*github.FileContent, error)
	putFunc func(ctx context.Context, owner, repo, path, message, content, sha string) error
}

func (f *fakeProvider) GetContent(ctx context.Context, owner, repo, path string) (*github.FileContent, error) {
	return f.getFunc(ctx, owner, repo, path)
}

func (f *fakeProvider) PutContent(ctx context.Context, owner, repo, path, message, content, sha string) error {
	return f.putFunc(ctx, owner, repo, path, message, content, sha)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRef() Ref {
	return Ref{Owner: "alice", Repo: "good-day", Path: "good-day.csv"}
}

func TestUpsertRecordFirstWrite(t *testing.T) {
	var written string
	var writtenSHA string
	provider := &fakeProvider{
		getFunc: func(ctx context.Context, owner, repo, path string) (*github.FileContent, error) {
			return nil, nil
		},
		putFunc: func(ctx context.Context, owner, repo, path, message, content, sha string) error {
			written = content
			writtenSHA = sha
			return nil
		},
	}
	store := NewStore(provider, testLogger(), "Good Day update")

	rec := model.NewFormResponse("2021-04-21")
	rec.Set("How was your workday?", "Good")

	if err := store.UpsertRecord(context.Background(), testRef(), rec); err != nil {
		t.Fatalf("UpsertRecord failed: %v", err)
	}
	if writtenSHA != "" {
		t.Errorf("first write must not carry a sha, got %q", writtenSHA)
	}
	want := "date,How was your workday?\n2021-04-21,Good\n"
	if written != want {
		t.Errorf("written content mismatch:\ngot:  %q\nwant: %q", written, want)
	}
}

func TestUpsertRecordReplacesSameDate(t *testing.T) {
	existing := "date,How was your workday?\n" +
		"2021-04-20,OK\n" +
		"2021-04-21,Bad\n"

	var written string
	var writtenSHA string
	provider := &fakeProvider{
		getFunc: func(ctx context.Context, owner, repo, path string) (*github.FileContent, error) {
			return &github.FileContent{Content: existing, SHA: "abc123"}, nil
		},
		putFunc: func(ctx context.Context, owner, repo, path, message, content, sha string) error {
			written = content
			writtenSHA = sha
			return nil
		},
	}
	store := NewStore(provider, testLogger(), "Good Day update")

	rec := model.NewFormResponse("2021-04-21")
	rec.Set("How was your workday?", "Good")

	if err := store.UpsertRecord(context.Background(), testRef(), rec); err != nil {
		t.Fatalf("UpsertRecord failed: %v", err)
	}
	if writtenSHA != "abc123" {
		t.Errorf("update must carry the read sha, got %q", writtenSHA)
	}
	if strings.Contains(written, "Bad") {
		t.Error("old row for the same date should have been replaced")
	}
	if strings.Count(written, "2021-04-21") != 1 {
		t.Errorf("expected exactly one row for the date:\n%s", written)
	}
}

func TestUpsertRecordSortsByDate(t *testing.T) {
	existing := "date,How was your workday?\n2021-04-22,OK\n"

	var written string
	provider := &fakeProvider{
		getFunc: func(ctx context.Context, owner, repo, path string) (*github.FileContent, error) {
			return &github.FileContent{Content: existing, SHA: "abc123"}, nil
		},
		putFunc: func(ctx context.Context, owner, repo, path, message, content, sha string) error {
			written = content
			return nil
		},
	}
	store := NewStore(provider, testLogger(), "Good Day update")

	rec := model.NewFormResponse("2021-04-20")
	rec.Set("How was your workday?", "Good")

	if err := store.UpsertRecord(context.Background(), testRef(), rec); err != nil {
		t.Fatalf("UpsertRecord failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(written, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "2021-04-20") || !strings.HasPrefix(lines[2], "2021-04-22") {
		t.Errorf("rows should be sorted ascending by date:\n%s", written)
	}
}

func TestUpsertRecordIdempotent(t *testing.T) {
	first := model.NewFormResponse("2021-04-21")
	first.Set("How was your workday?", "Good")

	var stored string
	provider := &fakeProvider{
		getFunc: func(ctx context.Context, owner, repo, path string) (*github.FileContent, error) {
			if stored == "" {
				return nil, nil
			}
			return &github.FileContent{Content: stored, SHA: "v1"}, nil
		},
		putFunc: func(ctx context.Context, owner, repo, path, message, content, sha string) error {
			stored = content
			return nil
		},
	}
	store := NewStore(provider, testLogger(), "Good Day update")

	if err := store.UpsertRecord(context.Background(), testRef(), first); err != nil {
		t.Fatalf("first UpsertRecord failed: %v", err)
	}
	afterFirst := stored

	if err := store.UpsertRecord(context.Background(), testRef(), first); err != nil {
		t.Fatalf("second UpsertRecord failed: %v", err)
	}
	if stored != afterFirst {
		t.Errorf("resubmitting the same record should not change the file:\nfirst:  %q\nsecond: %q", afterFirst, stored)
	}
}

func TestUpsertRecordConflict(t *testing.T) {
	provider := &fakeProvider{
		getFunc: func(ctx context.Context, owner, repo, path string) (*github.FileContent, error) {
			return &github.FileContent{Content: "date\n2021-04-20\n", SHA: "stale"}, nil
		},
		putFunc: func(ctx context.Context, owner, repo, path, message, content, sha string) error {
			return model.ErrVersionConflict
		},
	}
	store := NewStore(provider, testLogger(), "Good Day update")

	err := store.UpsertRecord(context.Background(), testRef(), model.NewFormResponse("2021-04-21"))
	if !errors.Is(err, model.ErrVersionConflict) {
		t.Errorf("conflict should surface unchanged, got %v", err)
	}
}

func TestUpsertRecordNoDate(t *testing.T) {
	store := NewStore(&fakeProvider{}, testLogger(), "Good Day update")

	if err := store.UpsertRecord(context.Background(), testRef(), model.FormResponse{}); err == nil {
		t.Error("expected error for record without date")
	}
}
