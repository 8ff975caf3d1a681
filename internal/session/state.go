package session

import (
	"time"

	"github.com/prepgrid/prepgrid/internal/model"
)

// QuestionState is one navigator cell: the display label plus the
// underlying facts, which the label never hides.
type QuestionState struct {
	Index    int           `json:"index"`
	Status   DisplayStatus `json:"status"`
	Answered bool          `json:"answered"`
	Flagged  bool          `json:"flagged"`
	Visited  bool          `json:"visited"`
	Selected *int          `json:"selected,omitempty"`
}

// State is a read-only view of a running or finished attempt. Derived
// counts are computed here, from the single ledger, never cached.
type State struct {
	Status           model.AttemptStatus `json:"status"`
	Mode             model.Mode          `json:"mode"`
	CurrentIndex     int                 `json:"current_index"`
	TotalQuestions   int                 `json:"total_questions"`
	AnsweredCount    int                 `json:"answered_count"`
	FlaggedCount     int                 `json:"flagged_count"`
	RemainingSeconds *int                `json:"remaining_seconds,omitempty"`
	Questions        []QuestionState     `json:"questions"`
}

// State snapshots the attempt for the view layer.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Status:         s.status,
		Mode:           s.mode,
		CurrentIndex:   s.cur,
		TotalQuestions: len(s.questions),
		AnsweredCount:  s.ledger.AnsweredCount(),
		FlaggedCount:   s.ledger.FlaggedCount(),
		Questions:      make([]QuestionState, len(s.questions)),
	}
	if s.mode == model.ModeExam {
		remaining := s.timer.Remaining()
		st.RemainingSeconds = &remaining
	}
	for i := range s.questions {
		qs := QuestionState{
			Index:    i,
			Status:   s.statusOfLocked(i),
			Answered: s.ledger.IsAnswered(i),
			Flagged:  s.ledger.IsFlagged(i),
			Visited:  s.ledger.Visited(i),
		}
		if opt, ok := s.ledger.SelectedOption(i); ok {
			qs.Selected = &opt
		}
		st.Questions[i] = qs
	}
	return st
}

// ReviewRow is one question of the practice-mode per-question review.
type ReviewRow struct {
	Index         int      `json:"index"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	Selected      *int     `json:"selected,omitempty"`
	CorrectOption int      `json:"correct_option"`
	Correct       bool     `json:"correct"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Results is the mode-appropriate results view of a finished attempt.
// Exam-mode results carry a provisional score plus the submission
// identifier and timestamp; the per-question review is practice-only.
type Results struct {
	SubmissionID     string              `json:"submission_id"`
	Status           model.AttemptStatus `json:"status"`
	Mode             model.Mode          `json:"mode"`
	FinishedAt       time.Time           `json:"finished_at"`
	TimeTakenSeconds int                 `json:"time_taken_seconds"`
	Provisional      bool                `json:"provisional"`
	Report           model.ScoreReport   `json:"report"`
	Review           []ReviewRow         `json:"review,omitempty"`
}

// Results builds the results view. It fails with ErrNotFinished while the
// attempt is still in progress.
func (s *Session) Results() (Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Results{}, ErrNotFinished
	}
	out := *s.outcome
	res := Results{
		SubmissionID:     out.SubmissionID,
		Status:           out.Status,
		Mode:             out.Mode,
		FinishedAt:       out.FinishedAt,
		TimeTakenSeconds: out.TimeTakenSeconds,
		Provisional:      out.Provisional,
		Report:           out.Report,
	}
	if out.Mode != model.ModePractice {
		return res, nil
	}

	res.Review = make([]ReviewRow, len(s.questions))
	for i, q := range s.questions {
		row := ReviewRow{
			Index:         i,
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
		}
		if opt, ok := s.ledger.SelectedOption(i); ok {
			sel := opt
			row.Selected = &sel
			row.Correct = opt == q.CorrectOption
		}
		res.Review[i] = row
	}
	return res, nil
}
