package home

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hitoshi/goodday/internal/model"
)

func renderJSON(t *testing.T, user *model.User, state model.HomeState) string {
	t.Helper()
	blocks := Render(user, state, "good-day-bot", "16:00")
	raw, err := json.Marshal(blocks)
	if err != nil {
		t.Fatalf("rendered blocks should be serializable: %v", err)
	}
	return string(raw)
}

func TestRenderNoRepo(t *testing.T) {
	view := renderJSON(t, nil, model.HomeStateNoRepo)

	if !strings.Contains(view, "onboarding-github-repo") {
		t.Error("view should contain the repo input action")
	}
	if !strings.Contains(view, "onboarding-timepicker-action") {
		t.Error("view should contain the timepicker action")
	}
	if strings.Contains(view, "check-repo") {
		t.Error("check button should not appear before a repo is saved")
	}
	if strings.Contains(view, "subscribe-toggle") {
		t.Error("subscribe toggle should only appear when setup is complete")
	}
}

func TestRenderInvalidRepo(t *testing.T) {
	view := renderJSON(t, &model.User{SlackID: "U123"}, model.HomeStateInvalidRepo)

	if !strings.Contains(view, "doesn't look like a repository") {
		t.Error("view should warn about the unparsable input")
	}
}

func TestRenderRepoClaimed(t *testing.T) {
	user := &model.User{SlackID: "U123", GHUser: "alice", GHRepo: "good-day"}
	view := renderJSON(t, user, model.HomeStateRepoClaimed)

	if !strings.Contains(view, "already connected to another Slack account") {
		t.Error("view should warn that the repo is claimed")
	}
	if strings.Contains(view, "Saving your records to") {
		t.Error("claimed repo should not be confirmed as saved")
	}
}

func TestRenderInviteBot(t *testing.T) {
	user := &model.User{SlackID: "U123", GHUser: "alice", GHRepo: "good-day"}
	view := renderJSON(t, user, model.HomeStateInviteBot)

	if !strings.Contains(view, "alice/good-day") {
		t.Error("view should confirm the saved repo")
	}
	if !strings.Contains(view, "good-day-bot") {
		t.Error("view should name the bot login to invite")
	}
	if !strings.Contains(view, "check-repo") {
		t.Error("view should contain the check button")
	}
}

func TestRenderSetupComplete(t *testing.T) {
	user := &model.User{SlackID: "U123", GHUser: "alice", GHRepo: "good-day", PromptTime: "09:30"}
	view := renderJSON(t, user, model.HomeStateSetupComplete)

	if !strings.Contains(view, "subscribe-toggle") {
		t.Error("view should contain the subscribe toggle")
	}
	if !strings.Contains(view, "trigger_prompt") {
		t.Error("view should contain the trigger prompt button")
	}
	if !strings.Contains(view, "09:30") {
		t.Error("timepicker should be pre-populated from the saved prompt time")
	}
	if !strings.Contains(view, "Pause daily prompts") {
		t.Error("subscribed user should see the pause label")
	}
}

func TestRenderSetupCompleteUnsubscribed(t *testing.T) {
	user := &model.User{SlackID: "U123", GHUser: "alice", GHRepo: "good-day", IsUnsubscribed: true}
	view := renderJSON(t, user, model.HomeStateSetupComplete)

	if !strings.Contains(view, "Resume daily prompts") {
		t.Error("unsubscribed user should see the resume label")
	}
	if !strings.Contains(view, "16:00") {
		t.Error("timepicker should fall back to the default prompt time")
	}
}

func TestRenderIsPure(t *testing.T) {
	user := &model.User{SlackID: "U123", GHUser: "alice", GHRepo: "good-day"}

	first := renderJSON(t, user, model.HomeStateSetupComplete)
	second := renderJSON(t, user, model.HomeStateSetupComplete)
	if first != second {
		t.Error("rendering the same inputs twice should produce identical views")
	}
}
