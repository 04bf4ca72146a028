package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/goodday/internal/form"
	"github.com/hitoshi/goodday/internal/model"
	"github.com/hitoshi/goodday/internal/slack"
)

// fakeUserRepo はrepository.UserRepositoryのテスト用実装。
type fakeUserRepo struct {
	listDueFunc func(ctx context.Context) ([]*model.User, error)
}

func (f *fakeUserRepo) FindBySlackID(ctx context.Context, slackID string) (*model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) Upsert(ctx context.Context, patch model.UserPatch) error {
	return nil
}

func (f *fakeUserRepo) FindByRepo(ctx context.Context, owner, name string) (*model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) ListDueForPrompt(ctx context.Context) ([]*model.User, error) {
	return f.listDueFunc(ctx)
}

// fakeMessenger はMessengerのテスト用実装。並行アクセスに耐える。
type fakeMessenger struct {
	mu       sync.Mutex
	posted   map[string][]slack.Block
	opened   []string
	postErr  error
	openFunc func(userID string) (string, error)
}

func (f *fakeMessenger) PostMessage(ctx context.Context, channel string, blocks []slack.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	if f.posted == nil {
		f.posted = make(map[string][]slack.Block)
	}
	f.posted[channel] = blocks
	return nil
}

func (f *fakeMessenger) OpenConversation(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, userID)
	if f.openFunc != nil {
		return f.openFunc(userID)
	}
	return "D-" + userID, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRunOnceFansOut(t *testing.T) {
	users := &fakeUserRepo{
		listDueFunc: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{SlackID: "U1", ChannelID: "C1"},
				{SlackID: "U2", ChannelID: "C2"},
				{SlackID: "U3"},
			}, nil
		},
	}
	messenger := &fakeMessenger{}
	scheduler := NewScheduler(users, messenger, form.DefaultSchema(), testLogger(), nil, 2)

	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(messenger.posted) != 3 {
		t.Errorf("expected 3 messages, got %d", len(messenger.posted))
	}
	if _, ok := messenger.posted["D-U3"]; !ok {
		t.Error("user without saved channel should get a DM via conversations.open")
	}
	if len(messenger.opened) != 1 {
		t.Errorf("only the channel-less user should open a conversation, got %v", messenger.opened)
	}
}

func TestRunOncePerUserFailureIsNotFatal(t *testing.T) {
	users := &fakeUserRepo{
		listDueFunc: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{{SlackID: "U1", ChannelID: "C1"}}, nil
		},
	}
	messenger := &fakeMessenger{postErr: errors.New("slack down")}
	scheduler := NewScheduler(users, messenger, form.DefaultSchema(), testLogger(), nil, 2)

	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Errorf("per-user delivery failure should not fail the cycle, got: %v", err)
	}
}

func TestRunOnceListError(t *testing.T) {
	users := &fakeUserRepo{
		listDueFunc: func(ctx context.Context) ([]*model.User, error) {
			return nil, errors.New("db down")
		},
	}
	scheduler := NewScheduler(users, &fakeMessenger{}, form.DefaultSchema(), testLogger(), nil, 2)

	if err := scheduler.RunOnce(context.Background()); err == nil {
		t.Error("expected error when listing due users fails")
	}
}

func TestSendPromptUsesUserTimezone(t *testing.T) {
	messenger := &fakeMessenger{}
	scheduler := NewScheduler(&fakeUserRepo{}, messenger, form.DefaultSchema(), testLogger(), nil, 1)
	// UTCの4月21日16時は東京では4月22日1時
	scheduler.now = func() time.Time {
		return time.Date(2021, 4, 21, 16, 0, 0, 0, time.UTC)
	}

	user := &model.User{SlackID: "U1", ChannelID: "C1", Timezone: "Asia/Tokyo"}
	if err := scheduler.SendPrompt(context.Background(), user); err != nil {
		t.Fatalf("SendPrompt failed: %v", err)
	}

	raw, _ := json.Marshal(messenger.posted["C1"])
	// 東京時間では4月22日
	if !strings.Contains(string(raw), "2021-04-22") {
		t.Errorf("questionnaire date should be in the user's timezone, got %s", raw)
	}
}

func TestSendPromptInvalidTimezoneFallsBackToUTC(t *testing.T) {
	messenger := &fakeMessenger{}
	scheduler := NewScheduler(&fakeUserRepo{}, messenger, form.DefaultSchema(), testLogger(), nil, 1)
	scheduler.now = func() time.Time {
		return time.Date(2021, 4, 21, 12, 0, 0, 0, time.UTC)
	}

	user := &model.User{SlackID: "U1", ChannelID: "C1", Timezone: "Not/AZone"}
	if err := scheduler.SendPrompt(context.Background(), user); err != nil {
		t.Fatalf("SendPrompt failed: %v", err)
	}

	raw, _ := json.Marshal(messenger.posted["C1"])
	if !strings.Contains(string(raw), "2021-04-21") {
		t.Errorf("unknown timezone should fall back to UTC, got %s", raw)
	}
}
