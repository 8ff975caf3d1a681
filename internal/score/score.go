// Package score turns a question list and a frozen answer snapshot into a
// ScoreReport. Scoring is a pure function: the same inputs always produce
// the same report.
package score

import (
	"errors"

	"github.com/prepgrid/prepgrid/internal/model"
)

// ErrNoQuestions is returned when scoring is asked for an empty question
// list. Exams always carry at least one question, so hitting this is a
// caller bug.
var ErrNoQuestions = errors.New("score: no questions")

// Score classifies every question as correct, incorrect, or skipped and
// aggregates the result. A question with no answer entry counts as skipped,
// never as incorrect. Flagged state does not affect classification.
func Score(questions []model.Question, answers []model.Answer, passingThreshold int) (model.ScoreReport, error) {
	if len(questions) == 0 {
		return model.ScoreReport{}, ErrNoQuestions
	}

	byIndex := make(map[int]model.Answer, len(answers))
	for _, a := range answers {
		byIndex[a.Index] = a
	}

	report := model.ScoreReport{
		TotalQuestions: len(questions),
		BySubject:      make(map[string]model.SubjectScore),
	}

	for i, q := range questions {
		subj := report.BySubject[q.Subject]
		subj.Total++

		a, ok := byIndex[i]
		if ok && a.Flagged {
			report.FlaggedCount++
		}
		switch {
		case !ok || a.Selected == nil:
			report.SkippedCount++
		case *a.Selected == q.CorrectOption:
			report.CorrectCount++
			subj.Correct++
		default:
			report.IncorrectCount++
		}

		report.BySubject[q.Subject] = subj
	}

	report.Percentage = roundedPercent(report.CorrectCount, report.TotalQuestions)
	report.Passed = report.Percentage >= passingThreshold

	for subject, subj := range report.BySubject {
		subj.Percentage = roundedPercent(subj.Correct, subj.Total)
		report.BySubject[subject] = subj
	}

	return report, nil
}

// roundedPercent computes 100*correct/total rounded half up, in integer
// arithmetic so re-scoring is bit-identical.
func roundedPercent(correct, total int) int {
	return (200*correct + total) / (2 * total)
}
