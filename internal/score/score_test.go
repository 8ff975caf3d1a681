package score

import (
	"reflect"
	"testing"

	"github.com/prepgrid/prepgrid/internal/model"
)

func q(subject string, correct int) model.Question {
	return model.Question{
		Text:          "q",
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: correct,
		Subject:       subject,
	}
}

func sel(i int) *int { return &i }

func TestScoreEmptyQuestions(t *testing.T) {
	if _, err := Score(nil, nil, 60); err != ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestScoreScenario(t *testing.T) {
	// Three questions with answer key [0,1,0]; answered 0 correct, 1 wrong,
	// 2 left unanswered.
	questions := []model.Question{q("math", 0), q("math", 1), q("physics", 0)}
	answers := []model.Answer{
		{Index: 0, Selected: sel(0)},
		{Index: 1, Selected: sel(2)},
	}

	report, err := Score(questions, answers, 60)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if report.CorrectCount != 1 {
		t.Errorf("expected 1 correct, got %d", report.CorrectCount)
	}
	if report.IncorrectCount != 1 {
		t.Errorf("expected 1 incorrect, got %d", report.IncorrectCount)
	}
	if report.SkippedCount != 1 {
		t.Errorf("expected 1 skipped, got %d", report.SkippedCount)
	}
	if report.Percentage != 33 {
		t.Errorf("expected 33%%, got %d%%", report.Percentage)
	}
	if report.Passed {
		t.Error("expected failed at threshold 60")
	}
}

func TestScoreIdempotent(t *testing.T) {
	questions := []model.Question{q("math", 0), q("math", 3), q("bio", 2)}
	answers := []model.Answer{
		{Index: 0, Selected: sel(0), Flagged: true},
		{Index: 2, Selected: sel(1)},
	}

	first, err := Score(questions, answers, 50)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	second, err := Score(questions, answers, 50)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-scoring produced different reports:\n%+v\n%+v", first, second)
	}
}

func TestScoreRounding(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		want    int
	}{
		{"exact", 3, 4, 75},
		{"third rounds down", 1, 3, 33},
		{"two thirds rounds up", 2, 3, 67},
		{"half rounds up", 1, 8, 13},
		{"zero", 0, 7, 0},
		{"all", 7, 7, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundedPercent(tt.correct, tt.total); got != tt.want {
				t.Errorf("roundedPercent(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
			}
		})
	}
}

func TestScoreBySubject(t *testing.T) {
	questions := []model.Question{
		q("algebra", 0), q("algebra", 1), q("algebra", 2),
		q("geometry", 3),
	}
	answers := []model.Answer{
		{Index: 0, Selected: sel(0)},
		{Index: 1, Selected: sel(1)},
		{Index: 3, Selected: sel(0)},
	}

	report, err := Score(questions, answers, 60)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	alg := report.BySubject["algebra"]
	if alg.Correct != 2 || alg.Total != 3 {
		t.Errorf("algebra: expected 2/3, got %d/%d", alg.Correct, alg.Total)
	}
	if alg.Percentage != 67 {
		t.Errorf("algebra: expected 67%%, got %d%%", alg.Percentage)
	}
	geo := report.BySubject["geometry"]
	if geo.Correct != 0 || geo.Total != 1 {
		t.Errorf("geometry: expected 0/1, got %d/%d", geo.Correct, geo.Total)
	}
}

func TestScoreFlaggedIndependentOfCorrectness(t *testing.T) {
	questions := []model.Question{q("s", 0), q("s", 0)}
	answers := []model.Answer{
		{Index: 0, Selected: sel(0), Flagged: true}, // flagged and correct
		{Index: 1, Flagged: true},                   // flagged and skipped
	}

	report, err := Score(questions, answers, 60)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if report.FlaggedCount != 2 {
		t.Errorf("expected 2 flagged, got %d", report.FlaggedCount)
	}
	if report.CorrectCount != 1 || report.SkippedCount != 1 {
		t.Errorf("flagging changed classification: %+v", report)
	}
}
