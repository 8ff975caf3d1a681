package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/prepgrid/prepgrid/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestExam(t *testing.T, s *Store, code, subject string, year int) int64 {
	t.Helper()
	id, err := s.CreateExam(model.Exam{
		Code:             code,
		Subject:          subject,
		Year:             year,
		Title:            code + " " + subject,
		DurationSeconds:  1800,
		PassingThreshold: 60,
		DefaultMode:      model.ModePractice,
	})
	if err != nil {
		t.Fatalf("createTestExam: %v", err)
	}
	return id
}

func insertTestQuestion(t *testing.T, s *Store, examID int64, text, subject string) int64 {
	t.Helper()
	id, err := s.InsertQuestion(model.Question{
		ExamID:        examID,
		Text:          text,
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: 1,
		Difficulty:    model.DifficultyMedium,
		Subject:       subject,
		Explanation:   "explanation for " + text,
	})
	if err != nil {
		t.Fatalf("insertTestQuestion: %v", err)
	}
	return id
}

func TestExamCRUD(t *testing.T) {
	s := newTestStore(t)

	list, err := s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	id := createTestExam(t, s, "waec", "mathematics", 2023)
	e, err := s.GetExam(id)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if e.Code != "waec" || e.Subject != "mathematics" || e.Year != 2023 {
		t.Errorf("unexpected exam: %+v", e)
	}
	if e.DurationSeconds != 1800 || e.PassingThreshold != 60 {
		t.Errorf("unexpected exam parameters: %+v", e)
	}

	_, err = s.GetExam(9999)
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	createTestExam(t, s, "waec", "physics", 2023)
	list, err = s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 exams, got %d", len(list))
	}
}

func TestGetExamByKey(t *testing.T) {
	s := newTestStore(t)
	createTestExam(t, s, "jamb", "chemistry", 2022)

	e, err := s.GetExamByKey("jamb", "chemistry", 2022)
	if err != nil {
		t.Fatalf("GetExamByKey: %v", err)
	}
	if e == nil || e.Subject != "chemistry" {
		t.Fatalf("expected chemistry exam, got %+v", e)
	}

	e, err = s.GetExamByKey("jamb", "chemistry", 2021)
	if err != nil {
		t.Fatalf("GetExamByKey miss: %v", err)
	}
	if e != nil {
		t.Errorf("expected nil for unknown year, got %+v", e)
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	examID := createTestExam(t, s, "waec", "math", 2023)
	otherID := createTestExam(t, s, "waec", "bio", 2023)

	insertTestQuestion(t, s, examID, "Q1", "algebra")
	insertTestQuestion(t, s, examID, "Q2", "geometry")
	insertTestQuestion(t, s, otherID, "Q3", "cells")

	questions, err := s.ListQuestionsForExam(examID)
	if err != nil {
		t.Fatalf("ListQuestionsForExam: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	q := questions[0]
	if q.Text != "Q1" {
		t.Errorf("expected Q1 first, got %q", q.Text)
	}
	// Option order must survive the JSON column.
	if len(q.Options) != 4 || q.Options[0] != "a" || q.Options[3] != "d" {
		t.Errorf("options mangled: %v", q.Options)
	}
	if q.CorrectOption != 1 {
		t.Errorf("expected answer key 1, got %d", q.CorrectOption)
	}
	if q.Explanation == "" {
		t.Error("explanation lost")
	}

	count, err := s.QuestionCount()
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 questions total, got %d", count)
	}
}

func TestListDistinctSubjects(t *testing.T) {
	s := newTestStore(t)
	examID := createTestExam(t, s, "waec", "math", 2023)

	subjects, err := s.ListDistinctSubjects(examID)
	if err != nil {
		t.Fatalf("ListDistinctSubjects: %v", err)
	}
	if len(subjects) != 0 {
		t.Errorf("expected no subjects, got %v", subjects)
	}

	insertTestQuestion(t, s, examID, "Q1", "geometry")
	insertTestQuestion(t, s, examID, "Q2", "algebra")
	insertTestQuestion(t, s, examID, "Q3", "algebra")

	subjects, err = s.ListDistinctSubjects(examID)
	if err != nil {
		t.Fatalf("ListDistinctSubjects: %v", err)
	}
	if len(subjects) != 2 || subjects[0] != "algebra" || subjects[1] != "geometry" {
		t.Errorf("expected [algebra geometry], got %v", subjects)
	}
}

func TestAttemptRoundTrip(t *testing.T) {
	s := newTestStore(t)
	examID := createTestExam(t, s, "waec", "math", 2023)

	sel := 2
	record := model.AttemptRecord{
		SubmissionID: "sub-123",
		ExamID:       examID,
		UserID:       0,
		Mode:         model.ModeExam,
		Status:       model.StatusSubmitted,
		Report: model.ScoreReport{
			TotalQuestions: 3,
			CorrectCount:   1,
			IncorrectCount: 1,
			SkippedCount:   1,
			Percentage:     33,
			BySubject: map[string]model.SubjectScore{
				"algebra": {Correct: 1, Total: 2, Percentage: 50},
			},
		},
		Answers: []model.Answer{
			{Index: 0, Selected: &sel, Flagged: true},
			{Index: 1, Flagged: true},
		},
		TimeTakenSeconds: 420,
		Provisional:      true,
		StartedAt:        time.Now().Add(-10 * time.Minute),
		FinishedAt:       time.Now(),
	}

	if _, err := s.SaveAttempt(record); err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}

	got, err := s.GetAttemptBySubmissionID("sub-123")
	if err != nil {
		t.Fatalf("GetAttemptBySubmissionID: %v", err)
	}
	if got == nil {
		t.Fatal("expected attempt, got nil")
	}
	if got.Mode != model.ModeExam || !got.Provisional {
		t.Errorf("unexpected attempt: %+v", got)
	}
	if got.Report.Percentage != 33 {
		t.Errorf("report lost: %+v", got.Report)
	}
	if got.Report.BySubject["algebra"].Correct != 1 {
		t.Errorf("subject breakdown lost: %+v", got.Report.BySubject)
	}
	if len(got.Answers) != 2 || got.Answers[0].Selected == nil || *got.Answers[0].Selected != 2 {
		t.Errorf("answers lost: %+v", got.Answers)
	}
	if got.Answers[1].Selected != nil {
		t.Errorf("skipped answer grew a selection: %+v", got.Answers[1])
	}

	missing, err := s.GetAttemptBySubmissionID("nope")
	if err != nil {
		t.Fatalf("GetAttemptBySubmissionID miss: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown submission, got %+v", missing)
	}
}

func TestListAttempts(t *testing.T) {
	s := newTestStore(t)
	examID := createTestExam(t, s, "waec", "math", 2023)

	base := model.AttemptRecord{
		ExamID:     examID,
		Mode:       model.ModePractice,
		Status:     model.StatusSubmitted,
		Report:     model.ScoreReport{TotalQuestions: 1, Percentage: 100, Passed: true},
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	}

	first := base
	first.SubmissionID = "s1"
	first.UserID = 7
	second := base
	second.SubmissionID = "s2"

	if _, err := s.SaveAttempt(first); err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}
	if _, err := s.SaveAttempt(second); err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}

	all, err := s.ListAttempts()
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(all))
	}
	// Newest first.
	if all[0].SubmissionID != "s2" {
		t.Errorf("expected s2 first, got %q", all[0].SubmissionID)
	}

	mine, err := s.ListAttemptsForUser(7)
	if err != nil {
		t.Fatalf("ListAttemptsForUser: %v", err)
	}
	if len(mine) != 1 || mine[0].SubmissionID != "s1" {
		t.Errorf("expected [s1], got %+v", mine)
	}
}

func TestUsersAndAuthSessions(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id, err := s.CreateUser(model.User{
		Username:     "ada",
		DisplayName:  "Ada",
		PasswordHash: "hash",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername("ada")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id || u.Role != model.UserRoleStudent {
		t.Fatalf("unexpected user: %+v", u)
	}

	missing, err := s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername miss: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil, got %+v", missing)
	}

	token, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != id {
		t.Fatalf("unexpected auth session: %+v", sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil after delete")
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash("/exams/waec_math.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash("/exams/waec_math.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, err = s.GetImportedFileHash("/exams/waec_math.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	if err := s.SetImportedFileHash("/exams/waec_math.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/exams/waec_math.json")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}
