package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/hitoshi/goodday/internal/dataset"
	"github.com/hitoshi/goodday/internal/form"
	"github.com/hitoshi/goodday/internal/model"
	"github.com/hitoshi/goodday/internal/slack"
)

// fakeUserRepo はrepository.UserRepositoryのテスト用実装。
type fakeUserRepo struct {
	findBySlackIDFunc func(ctx context.Context, slackID string) (*model.User, error)
	findByRepoFunc    func(ctx context.Context, owner, name string) (*model.User, error)
	upserted          []model.UserPatch
	upsertErr         error
}

func (f *fakeUserRepo) FindBySlackID(ctx context.Context, slackID string) (*model.User, error) {
	if f.findBySlackIDFunc != nil {
		return f.findBySlackIDFunc(ctx, slackID)
	}
	return nil, nil
}

func (f *fakeUserRepo) Upsert(ctx context.Context, patch model.UserPatch) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, patch)
	return nil
}

func (f *fakeUserRepo) FindByRepo(ctx context.Context, owner, name string) (*model.User, error) {
	if f.findByRepoFunc != nil {
		return f.findByRepoFunc(ctx, owner, name)
	}
	return nil, nil
}

func (f *fakeUserRepo) ListDueForPrompt(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}

// fakeStore はRecordStoreのテスト用実装。
type fakeStore struct {
	upsertFunc func(ctx context.Context, ref dataset.Ref, rec model.FormResponse) error
	saved      []model.FormResponse
}

func (f *fakeStore) UpsertRecord(ctx context.Context, ref dataset.Ref, rec model.FormResponse) error {
	if f.upsertFunc != nil {
		return f.upsertFunc(ctx, ref, rec)
	}
	f.saved = append(f.saved, rec)
	return nil
}

// fakeResolver はStateResolverのテスト用実装。
type fakeResolver struct {
	state model.HomeState
	err   error
}

func (f *fakeResolver) ResolveState(ctx context.Context, user *model.User) (model.HomeState, error) {
	return f.state, f.err
}

// fakeHome はHomePublisherのテスト用実装。
type fakeHome struct {
	published []model.HomeState
	resolved  int
}

func (f *fakeHome) PublishHome(ctx context.Context, slackID string) error {
	f.resolved++
	return nil
}

func (f *fakeHome) PublishHomeState(ctx context.Context, slackID string, user *model.User, state model.HomeState) error {
	f.published = append(f.published, state)
	return nil
}

// fakeMessenger はMessengerのテスト用実装。
type fakeMessenger struct {
	posted  map[string][]slack.Block
	postErr error
}

func (f *fakeMessenger) PostMessage(ctx context.Context, channel string, blocks []slack.Block) error {
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
	return "D-" + userID, nil
}

// fakePrompts はPromptSenderのテスト用実装。
type fakePrompts struct {
	sent []string
	err  error
}

func (f *fakePrompts) SendPrompt(ctx context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, user.SlackID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func setupUser() *model.User {
	return &model.User{SlackID: "U123", GHUser: "alice", GHRepo: "good-day", ChannelID: "D123"}
}

func newTestHandler(users *fakeUserRepo, store *fakeStore, resolver *fakeResolver, homePub *fakeHome, messenger *fakeMessenger, prompts *fakePrompts) *InteractiveHandler {
	return NewInteractiveHandler(InteractiveHandlerDeps{
		Users:        users,
		Store:        store,
		Schema:       form.DefaultSchema(),
		Resolver:     resolver,
		Home:         homePub,
		Messenger:    messenger,
		Prompts:      prompts,
		Logger:       testLogger(),
		BotLogin:     "good-day-bot",
		DataFilePath: "good-day.csv",
	})
}

func postInteraction(t *testing.T, h *InteractiveHandler, payload string) *httptest.ResponseRecorder {
	t.Helper()
	body := url.Values{"payload": {payload}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/slack/interactive", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleInteraction(rec, req)
	return rec
}

func recordDayPayload(date string, selections map[string]string) string {
	values := ""
	for id, v := range selections {
		if values != "" {
			values += ","
		}
		values += fmt.Sprintf(`"%s_block":{"%s":{"selected_option":{"value":"%s"}}}`, id, id, v)
	}
	return fmt.Sprintf(`{
		"type": "block_actions",
		"user": {"id": "U123"},
		"actions": [{"action_id": "record_day", "value": "record_day"}],
		"message": {"blocks": [{"block_id": "%s"}]},
		"state": {"values": {%s}}
	}`, date, values)
}

func TestHandleRecordDaySuccess(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return setupUser(), nil
		},
	}
	store := &fakeStore{}
	messenger := &fakeMessenger{}
	h := newTestHandler(users, store, &fakeResolver{}, &fakeHome{}, messenger, &fakePrompts{})

	rec := postInteraction(t, h, recordDayPayload("2021-04-21", map[string]string{"workday_quality": "3"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 saved record, got %d", len(store.saved))
	}
	if store.saved[0].Date != "2021-04-21" {
		t.Errorf("unexpected record date: %s", store.saved[0].Date)
	}
	if _, ok := messenger.posted["D123"]; !ok {
		t.Error("success message should be sent to the saved channel")
	}
}

func TestHandleRecordDayConflictIsNotAckedAsSaved(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return setupUser(), nil
		},
	}
	store := &fakeStore{
		upsertFunc: func(ctx context.Context, ref dataset.Ref, rec model.FormResponse) error {
			return model.ErrVersionConflict
		},
	}
	messenger := &fakeMessenger{}
	h := newTestHandler(users, store, &fakeResolver{}, &fakeHome{}, messenger, &fakePrompts{})

	rec := postInteraction(t, h, recordDayPayload("2021-04-21", map[string]string{"workday_quality": "3"}))

	if rec.Code != http.StatusConflict {
		t.Errorf("conflict should surface as 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), model.ErrCodeVersionConflict) {
		t.Errorf("response should carry the conflict code, got %s", rec.Body.String())
	}
	blocks := messenger.posted["D123"]
	if blocks == nil {
		t.Fatal("user should be told to try again")
	}
}

func TestHandleRecordDayTransportFailure(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return setupUser(), nil
		},
	}
	store := &fakeStore{
		upsertFunc: func(ctx context.Context, ref dataset.Ref, rec model.FormResponse) error {
			return &model.TransportError{Provider: "github", StatusCode: 503, Message: "unavailable"}
		},
	}
	h := newTestHandler(users, store, &fakeResolver{}, &fakeHome{}, &fakeMessenger{}, &fakePrompts{})

	rec := postInteraction(t, h, recordDayPayload("2021-04-21", map[string]string{"workday_quality": "3"}))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("transport failure should surface as 502, got %d", rec.Code)
	}
}

func TestHandleRecordDayWithoutRepo(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return &model.User{SlackID: "U123"}, nil
		},
	}
	h := newTestHandler(users, &fakeStore{}, &fakeResolver{}, &fakeHome{}, &fakeMessenger{}, &fakePrompts{})

	rec := postInteraction(t, h, recordDayPayload("2021-04-21", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("user without a repo should get 404, got %d", rec.Code)
	}
}

func TestHandleRepoInputValid(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return &model.User{SlackID: "U123", ChannelID: "D123"}, nil
		},
	}
	homePub := &fakeHome{}
	messenger := &fakeMessenger{}
	h := newTestHandler(users, &fakeStore{}, &fakeResolver{}, homePub, messenger, &fakePrompts{})

	payload := `{
		"user": {"id": "U123"},
		"actions": [{"action_id": "onboarding-github-repo", "value": "https://github.com/alice/good-day"}]
	}`
	rec := postInteraction(t, h, payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(users.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(users.upserted))
	}
	patch := users.upserted[0]
	if patch.GHUser == nil || *patch.GHUser != "alice" || patch.GHRepo == nil || *patch.GHRepo != "good-day" {
		t.Errorf("unexpected patch: %+v", patch)
	}
	if homePub.resolved != 1 {
		t.Error("home view should be re-resolved and published")
	}
	if _, ok := messenger.posted["D123"]; !ok {
		t.Error("repo-check prompt should be sent to the user")
	}
}

func TestHandleRepoInputInvalid(t *testing.T) {
	users := &fakeUserRepo{}
	homePub := &fakeHome{}
	h := newTestHandler(users, &fakeStore{}, &fakeResolver{}, homePub, &fakeMessenger{}, &fakePrompts{})

	payload := `{
		"user": {"id": "U123"},
		"actions": [{"action_id": "onboarding-github-repo", "value": "not a repo"}]
	}`
	rec := postInteraction(t, h, payload)

	if rec.Code != http.StatusOK {
		t.Errorf("invalid input should still be acked to Slack with 200, got %d", rec.Code)
	}
	if len(users.upserted) != 0 {
		t.Error("invalid input must not be saved")
	}
	if len(homePub.published) != 1 || homePub.published[0] != model.HomeStateInvalidRepo {
		t.Errorf("home view should show the invalid-repo state, got %v", homePub.published)
	}
}

func TestHandleRepoInputClaimedByOther(t *testing.T) {
	users := &fakeUserRepo{
		findByRepoFunc: func(ctx context.Context, owner, name string) (*model.User, error) {
			return &model.User{SlackID: "U999", GHUser: owner, GHRepo: name}, nil
		},
	}
	homePub := &fakeHome{}
	h := newTestHandler(users, &fakeStore{}, &fakeResolver{}, homePub, &fakeMessenger{}, &fakePrompts{})

	payload := `{
		"user": {"id": "U123"},
		"actions": [{"action_id": "onboarding-github-repo", "value": "alice/good-day"}]
	}`
	rec := postInteraction(t, h, payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(users.upserted) != 0 {
		t.Error("claimed repo must not be saved for another user")
	}
	if len(homePub.published) != 1 || homePub.published[0] != model.HomeStateRepoClaimed {
		t.Errorf("home view should show the claimed state, got %v", homePub.published)
	}
}

func TestHandleTimePicker(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return setupUser(), nil
		},
	}
	messenger := &fakeMessenger{}
	h := newTestHandler(users, &fakeStore{}, &fakeResolver{}, &fakeHome{}, messenger, &fakePrompts{})

	payload := `{
		"user": {"id": "U123"},
		"actions": [{"action_id": "onboarding-timepicker-action", "selected_time": "09:30"}]
	}`
	rec := postInteraction(t, h, payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(users.upserted) != 1 || users.upserted[0].PromptTime == nil || *users.upserted[0].PromptTime != "09:30" {
		t.Errorf("prompt time should be saved, got %+v", users.upserted)
	}
}

func TestHandleCheckRepoComplete(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return setupUser(), nil
		},
	}
	homePub := &fakeHome{}
	messenger := &fakeMessenger{}
	h := newTestHandler(users, &fakeStore{}, &fakeResolver{state: model.HomeStateSetupComplete}, homePub, messenger, &fakePrompts{})

	payload := `{
		"user": {"id": "U123"},
		"actions": [{"action_id": "check-repo", "value": "check"}]
	}`
	rec := postInteraction(t, h, payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(homePub.published) != 1 || homePub.published[0] != model.HomeStateSetupComplete {
		t.Errorf("home view should show setup complete, got %v", homePub.published)
	}
	raw, _ := json.Marshal(messenger.posted["D123"])
	if !strings.Contains(string(raw), "All set!") {
		t.Errorf("user should get the setup-complete message, got %s", raw)
	}
}

func TestHandleCheckRepoStillMissing(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return setupUser(), nil
		},
	}
	messenger := &fakeMessenger{}
	h := newTestHandler(users, &fakeStore{}, &fakeResolver{state: model.HomeStateInviteBot}, &fakeHome{}, messenger, &fakePrompts{})

	payload := `{
		"user": {"id": "U123"},
		"actions": [{"action_id": "check-repo", "value": "check"}]
	}`
	postInteraction(t, h, payload)

	raw, _ := json.Marshal(messenger.posted["D123"])
	if !strings.Contains(string(raw), "can't write to your repository yet") {
		t.Errorf("user should get the permissions message, got %s", raw)
	}
}

func TestHandleSubscribeToggle(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return setupUser(), nil
		},
	}
	homePub := &fakeHome{}
	h := newTestHandler(users, &fakeStore{}, &fakeResolver{}, homePub, &fakeMessenger{}, &fakePrompts{})

	payload := `{
		"user": {"id": "U123"},
		"actions": [{"action_id": "subscribe-toggle", "value": "toggle"}]
	}`
	rec := postInteraction(t, h, payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(users.upserted) != 1 || users.upserted[0].IsUnsubscribed == nil || !*users.upserted[0].IsUnsubscribed {
		t.Errorf("subscribed user should be unsubscribed, got %+v", users.upserted)
	}
	if homePub.resolved != 1 {
		t.Error("home view should be re-published after the toggle")
	}
}

func TestHandleTriggerPrompt(t *testing.T) {
	users := &fakeUserRepo{
		findBySlackIDFunc: func(ctx context.Context, slackID string) (*model.User, error) {
			return setupUser(), nil
		},
	}
	prompts := &fakePrompts{}
	h := newTestHandler(users, &fakeStore{}, &fakeResolver{}, &fakeHome{}, &fakeMessenger{}, prompts)

	payload := `{
		"user": {"id": "U123"},
		"actions": [{"action_id": "trigger_prompt", "value": "trigger"}]
	}`
	rec := postInteraction(t, h, payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(prompts.sent) != 1 || prompts.sent[0] != "U123" {
		t.Errorf("prompt should be sent immediately, got %v", prompts.sent)
	}
}

func TestHandleInteractionMissingUser(t *testing.T) {
	h := newTestHandler(&fakeUserRepo{}, &fakeStore{}, &fakeResolver{}, &fakeHome{}, &fakeMessenger{}, &fakePrompts{})

	rec := postInteraction(t, h, `{"actions": [{"action_id": "check-repo"}]}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("payload without user id should get 400, got %d", rec.Code)
	}
}

func TestHandleInteractionUnknownAction(t *testing.T) {
	h := newTestHandler(&fakeUserRepo{}, &fakeStore{}, &fakeResolver{}, &fakeHome{}, &fakeMessenger{}, &fakePrompts{})

	rec := postInteraction(t, h, `{"user": {"id": "U123"}, "actions": [{"action_id": "something-new"}]}`)

	if rec.Code != http.StatusOK {
		t.Errorf("unknown actions should be ignored with 200, got %d", rec.Code)
	}
}
