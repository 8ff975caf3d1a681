package model

import "time"

// SubjectScore is the per-subject slice of a score report.
type SubjectScore struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// ScoreReport is the derived summary of a finished attempt. It is computed
// from the question list and answer snapshot and never mutated in place.
type ScoreReport struct {
	TotalQuestions int                     `json:"total_questions"`
	CorrectCount   int                     `json:"correct_count"`
	IncorrectCount int                     `json:"incorrect_count"`
	SkippedCount   int                     `json:"skipped_count"`
	FlaggedCount   int                     `json:"flagged_count"`
	Percentage     int                     `json:"percentage"`
	Passed         bool                    `json:"passed"`
	BySubject      map[string]SubjectScore `json:"by_subject"`
}

// Answer is one question's frozen ledger state. Selected is nil when the
// question was skipped.
type Answer struct {
	Index    int  `json:"index"`
	Selected *int `json:"selected,omitempty"`
	Flagged  bool `json:"flagged"`
}

// AttemptRecord is a completed attempt as persisted. UserID 0 means the
// attempt was taken anonymously.
type AttemptRecord struct {
	ID               int64         `json:"id"`
	SubmissionID     string        `json:"submission_id"`
	ExamID           int64         `json:"exam_id"`
	UserID           int64         `json:"user_id,omitempty"`
	Mode             Mode          `json:"mode"`
	Status           AttemptStatus `json:"status"`
	Report           ScoreReport   `json:"report"`
	Answers          []Answer      `json:"answers"`
	TimeTakenSeconds int           `json:"time_taken_seconds"`
	Provisional      bool          `json:"provisional"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       time.Time     `json:"finished_at"`
}

// AttemptExport is the top-level JSON structure for attempt export.
type AttemptExport struct {
	ExamCode string          `json:"exam_code,omitempty"`
	Subject  string          `json:"subject,omitempty"`
	Year     int             `json:"year,omitempty"`
	Attempts []AttemptRecord `json:"attempts"`
}
