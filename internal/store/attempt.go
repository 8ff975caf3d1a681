package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/prepgrid/prepgrid/internal/model"
)

// SaveAttempt persists a completed attempt. The score report and answer
// snapshot are stored as JSON columns; the engine never reads them back
// into a live session.
func (s *Store) SaveAttempt(a model.AttemptRecord) (int64, error) {
	report, err := json.Marshal(a.Report)
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return 0, fmt.Errorf("marshal answers: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO attempts (submission_id, exam_id, user_id, mode, status, report, answers,
		                       time_taken_seconds, provisional, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.SubmissionID, a.ExamID, a.UserID, a.Mode, a.Status, string(report), string(answers),
		a.TimeTakenSeconds, a.Provisional, a.StartedAt, a.FinishedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAttemptBySubmissionID returns a persisted attempt, or nil if the
// submission identifier is unknown.
func (s *Store) GetAttemptBySubmissionID(submissionID string) (*model.AttemptRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, submission_id, exam_id, user_id, mode, status, report, answers,
		        time_taken_seconds, provisional, started_at, finished_at
		 FROM attempts WHERE submission_id = ?`, submissionID,
	)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAttempts returns all persisted attempts, newest first.
func (s *Store) ListAttempts() ([]model.AttemptRecord, error) {
	return s.listAttempts(
		`SELECT id, submission_id, exam_id, user_id, mode, status, report, answers,
		        time_taken_seconds, provisional, started_at, finished_at
		 FROM attempts ORDER BY id DESC`,
	)
}

// ListAttemptsForUser returns one user's persisted attempts, newest first.
func (s *Store) ListAttemptsForUser(userID int64) ([]model.AttemptRecord, error) {
	return s.listAttempts(
		`SELECT id, submission_id, exam_id, user_id, mode, status, report, answers,
		        time_taken_seconds, provisional, started_at, finished_at
		 FROM attempts WHERE user_id = ? ORDER BY id DESC`, userID,
	)
}

func (s *Store) listAttempts(query string, args ...any) ([]model.AttemptRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.AttemptRecord
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*model.AttemptRecord, error) {
	var a model.AttemptRecord
	var report, answers string
	err := row.Scan(&a.ID, &a.SubmissionID, &a.ExamID, &a.UserID, &a.Mode, &a.Status,
		&report, &answers, &a.TimeTakenSeconds, &a.Provisional, &a.StartedAt, &a.FinishedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(report), &a.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report for attempt %d: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers for attempt %d: %w", a.ID, err)
	}
	return &a, nil
}
