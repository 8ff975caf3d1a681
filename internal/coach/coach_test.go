package coach

import (
	"reflect"
	"strings"
	"testing"

	"github.com/prepgrid/prepgrid/internal/model"
)

func testReport() model.ScoreReport {
	return model.ScoreReport{
		TotalQuestions: 10,
		CorrectCount:   6,
		IncorrectCount: 3,
		SkippedCount:   1,
		Percentage:     60,
		Passed:         true,
		BySubject: map[string]model.SubjectScore{
			"algebra":  {Correct: 3, Total: 4, Percentage: 75},
			"geometry": {Correct: 1, Total: 3, Percentage: 33},
			"calculus": {Correct: 2, Total: 3, Percentage: 67},
		},
	}
}

func TestSubjectsByWeakness(t *testing.T) {
	got := subjectsByWeakness(testReport())
	want := []string{"geometry", "calculus", "algebra"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("subjectsByWeakness() = %v, want %v", got, want)
	}
}

func TestSubjectsByWeaknessTies(t *testing.T) {
	report := model.ScoreReport{
		BySubject: map[string]model.SubjectScore{
			"zoology": {Percentage: 50},
			"anatomy": {Percentage: 50},
		},
	}
	got := subjectsByWeakness(report)
	want := []string{"anatomy", "zoology"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("subjectsByWeakness() = %v, want %v", got, want)
	}
}

func TestBuildStudyPrompt(t *testing.T) {
	exam := model.Exam{Title: "WAEC Mathematics 2023"}
	prompt := buildStudyPrompt(exam, testReport())

	if !strings.Contains(prompt, "WAEC Mathematics 2023") {
		t.Error("prompt should contain the exam title")
	}
	if !strings.Contains(prompt, "6/10 correct (60%)") {
		t.Error("prompt should contain the overall line")
	}
	if !strings.Contains(prompt, "geometry: 1/3 (33%)") {
		t.Error("prompt should contain the weakest subject line")
	}
	// Weakest subject listed before the strongest.
	if strings.Index(prompt, "geometry") > strings.Index(prompt, "algebra") {
		t.Error("prompt should list weakest subjects first")
	}
	if !strings.Contains(prompt, `"focus_subjects"`) {
		t.Error("prompt should pin the JSON response shape")
	}
}

func TestBuildStudyPromptNoTitle(t *testing.T) {
	prompt := buildStudyPrompt(model.Exam{}, testReport())
	if strings.Contains(prompt, "EXAM:") {
		t.Error("prompt should omit the exam line when there is no title")
	}
}

func TestNewRequiresModel(t *testing.T) {
	if _, err := New("http://localhost:11434/v1", "key", ""); err == nil {
		t.Error("expected error for empty model name")
	}
	if _, err := New("", "key", "llama3.2"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
