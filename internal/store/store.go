package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/prepgrid/prepgrid/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL,
		subject TEXT NOT NULL,
		year INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL DEFAULT 1800,
		passing_threshold INTEGER NOT NULL DEFAULT 60,
		default_mode TEXT NOT NULL DEFAULT 'practice',
		UNIQUE (code, subject, year)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_option INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		subject TEXT NOT NULL,
		hint TEXT NOT NULL DEFAULT '',
		explanation TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id TEXT NOT NULL UNIQUE,
		exam_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL DEFAULT 0,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		report TEXT NOT NULL,
		answers TEXT NOT NULL,
		time_taken_seconds INTEGER NOT NULL DEFAULT 0,
		provisional INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam stores an exam definition.
func (s *Store) CreateExam(e model.Exam) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO exams (code, subject, year, title, duration_seconds, passing_threshold, default_mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Code, e.Subject, e.Year, e.Title, e.DurationSeconds, e.PassingThreshold, e.DefaultMode,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetExam returns an exam by ID.
func (s *Store) GetExam(id int64) (model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRow(
		`SELECT id, code, subject, year, title, duration_seconds, passing_threshold, default_mode
		 FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Code, &e.Subject, &e.Year, &e.Title, &e.DurationSeconds, &e.PassingThreshold, &e.DefaultMode)
	return e, err
}

// GetExamByKey returns the exam for an (examType, subject, year) identifier,
// or nil if none exists.
func (s *Store) GetExamByKey(code, subject string, year int) (*model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRow(
		`SELECT id, code, subject, year, title, duration_seconds, passing_threshold, default_mode
		 FROM exams WHERE code = ? AND subject = ? AND year = ?`, code, subject, year,
	).Scan(&e.ID, &e.Code, &e.Subject, &e.Year, &e.Title, &e.DurationSeconds, &e.PassingThreshold, &e.DefaultMode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExams returns all exams.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(
		`SELECT id, code, subject, year, title, duration_seconds, passing_threshold, default_mode
		 FROM exams ORDER BY code, subject, year`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Code, &e.Subject, &e.Year, &e.Title, &e.DurationSeconds, &e.PassingThreshold, &e.DefaultMode); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// InsertQuestion stores a question. The option list is kept as a JSON
// column; order is significant.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return 0, fmt.Errorf("marshal options: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO questions (exam_id, text, options, correct_option, difficulty, subject, hint, explanation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ExamID, q.Text, string(options), q.CorrectOption, q.Difficulty, q.Subject, q.Hint, q.Explanation,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListQuestionsForExam returns an exam's questions in insertion order.
func (s *Store) ListQuestionsForExam(examID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, text, options, correct_option, difficulty, subject, hint, explanation
		 FROM questions WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options string
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &options, &q.CorrectOption, &q.Difficulty, &q.Subject, &q.Hint, &q.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for question %d: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// ListDistinctSubjects returns the subject tags used by an exam's
// questions, alphabetically.
func (s *Store) ListDistinctSubjects(examID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT subject FROM questions WHERE exam_id = ? ORDER BY subject`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}
