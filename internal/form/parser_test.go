package form

import (
	"strings"
	"testing"

	"github.com/hitoshi/goodday/internal/model"
)

func TestParseResponse(t *testing.T) {
	s := DefaultSchema()

	rec := s.ParseResponse("2021-04-21", map[string]string{
		"workday_quality": "3",
		"meetings":        "0",
	})

	if rec.Date != "2021-04-21" {
		t.Errorf("date should pass through verbatim, got %s", rec.Date)
	}

	quality, _ := s.ByID("workday_quality")
	key := strings.ReplaceAll(quality.DisplayTitle, ",", "")
	if got := rec.Answers[key]; got != quality.DisplayOptions[3] {
		t.Errorf("expected option index 3 (%q), got %q", quality.DisplayOptions[3], got)
	}
	if got := rec.Answers["How many meetings did you have today?"]; !strings.Contains(got, "None") {
		t.Errorf("expected None for index 0, got %q", got)
	}
	if len(rec.Answers) != 2 {
		t.Errorf("unselected questions should be absent, got %d answers", len(rec.Answers))
	}
}

func TestParseResponseUnknownField(t *testing.T) {
	s := DefaultSchema()

	rec := s.ParseResponse("2021-04-21", map[string]string{
		"deleted_question": "1",
		"workday_quality":  "0",
	})

	if len(rec.Answers) != 1 {
		t.Errorf("unknown field id should be skipped, got %d answers", len(rec.Answers))
	}
	for key := range rec.Answers {
		if strings.Contains(key, "deleted_question") {
			t.Errorf("unknown field must not be mapped to any key, got %q", key)
		}
	}
}

func TestParseResponseOutOfRange(t *testing.T) {
	s := DefaultSchema()

	tests := map[string]string{
		"negative":    "-1",
		"too large":   "99",
		"not a digit": "abc",
		"empty":       "",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			rec := s.ParseResponse("2021-04-21", map[string]string{"workday_quality": raw})
			quality, _ := s.ByID("workday_quality")
			key := strings.ReplaceAll(quality.DisplayTitle, ",", "")
			if got := rec.Answers[key]; got != NotApplicable {
				t.Errorf("expected %q, got %q", NotApplicable, got)
			}
		})
	}
}

func TestParseResponseEmptySelection(t *testing.T) {
	s := DefaultSchema()

	rec := s.ParseResponse("2021-04-21", map[string]string{})
	if len(rec.Answers) != 0 {
		t.Errorf("empty selection should produce a date-only record, got %d answers", len(rec.Answers))
	}
	cols := rec.Columns()
	if len(cols) != 1 || cols[0] != model.DateKey {
		t.Errorf("expected only the date column, got %v", cols)
	}
}

func TestParseResponseKeysHaveNoCommas(t *testing.T) {
	s := MustSchema([]model.Question{
		{ID: "q1", Title: "First, second, third?", Options: []string{"yes", "no"}},
	})

	rec := s.ParseResponse("2021-04-21", map[string]string{"q1": "0"})
	if _, ok := rec.Answers["First second third?"]; !ok {
		t.Errorf("commas should be stripped from keys, got %v", rec.Answers)
	}
}

func TestParseResponseDeterministicOrder(t *testing.T) {
	s := DefaultSchema()
	selection := map[string]string{
		"meetings":        "1",
		"workday_quality": "1",
		"breaks":          "1",
	}

	first := s.ParseResponse("2021-04-21", selection)
	for i := 0; i < 10; i++ {
		again := s.ParseResponse("2021-04-21", selection)
		if strings.Join(again.Order, "|") != strings.Join(first.Order, "|") {
			t.Fatalf("column order should follow schema order, got %v vs %v", again.Order, first.Order)
		}
	}

	// workday_quality はスキーマ上breaksとmeetingsより前に定義されている
	if !strings.Contains(first.Order[0], "workday") {
		t.Errorf("first column should be the earliest schema question, got %v", first.Order)
	}
}
