package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil
// when the request is anonymous.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Mode represents how an attempt is taken.
type Mode string

const (
	// ModePractice is untimed; hints and explanations are available.
	ModePractice Mode = "practice"
	// ModeExam is timed; hints are withheld and the score is provisional.
	ModeExam Mode = "exam"
)

// AttemptStatus represents the lifecycle state of an attempt.
type AttemptStatus string

const (
	StatusNotStarted AttemptStatus = "not_started"
	StatusInProgress AttemptStatus = "in_progress"
	StatusSubmitted  AttemptStatus = "submitted"
	StatusExpired    AttemptStatus = "expired"
)

// Terminal reports whether the status admits no further mutation.
func (s AttemptStatus) Terminal() bool {
	return s == StatusSubmitted || s == StatusExpired
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a multiple-choice question. Options is ordered and
// CorrectOption indexes into it. Hint and Explanation are optional;
// empty means absent.
type Question struct {
	ID            int64      `json:"id"`
	ExamID        int64      `json:"exam_id"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correct_option"`
	Difficulty    Difficulty `json:"difficulty"`
	Subject       string     `json:"subject"`
	Hint          string     `json:"hint,omitempty"`
	Explanation   string     `json:"explanation,omitempty"`
}

// Exam describes one question bank and its attempt parameters.
type Exam struct {
	ID               int64  `json:"id"`
	Code             string `json:"code"`
	Subject          string `json:"subject"`
	Year             int    `json:"year"`
	Title            string `json:"title"`
	DurationSeconds  int    `json:"duration_seconds"`
	PassingThreshold int    `json:"passing_threshold"`
	DefaultMode      Mode   `json:"default_mode"`
}

const (
	// DefaultDurationSeconds applies when an exam does not set its own duration.
	DefaultDurationSeconds = 1800
	// DefaultPassingThreshold is the percentage needed to pass when an exam
	// does not set its own threshold.
	DefaultPassingThreshold = 60
)

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	DurationSeconds  int  // 0 means use each exam's own duration
	PassingThreshold int  // 0 means use each exam's own threshold
	DefaultMode      Mode // mode used when a start request does not name one
	SecureCookies    bool // Set Secure flag on cookies (disable for local dev)
}

// ExamImport is used for loading an exam with its questions from JSON.
type ExamImport struct {
	Code             string           `json:"code"`
	Subject          string           `json:"subject"`
	Year             int              `json:"year"`
	Title            string           `json:"title"`
	DurationSeconds  int              `json:"duration_seconds"`
	PassingThreshold int              `json:"passing_threshold"`
	DefaultMode      Mode             `json:"default_mode"`
	Questions        []QuestionImport `json:"questions"`
}

// QuestionImport is used for loading questions from JSON.
type QuestionImport struct {
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correct_option"`
	Difficulty    Difficulty `json:"difficulty"`
	Subject       string     `json:"subject"`
	Hint          string     `json:"hint,omitempty"`
	Explanation   string     `json:"explanation,omitempty"`
}
