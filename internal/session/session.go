// Package session implements the in-memory attempt engine: one Session per
// running attempt, owning the question list, the answer/flag/visit ledger,
// the countdown, and the state machine between them.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepgrid/prepgrid/internal/model"
	"github.com/prepgrid/prepgrid/internal/score"
)

var (
	// ErrNoQuestions is returned when an attempt is created without questions.
	ErrNoQuestions = errors.New("session: exam has no questions")
	// ErrBadQuestion is returned for malformed question data (too few
	// options or an answer key outside the option range).
	ErrBadQuestion = errors.New("session: malformed question")
	// ErrOutOfRange is returned for a question or option index outside its
	// valid range. This is a caller bug, never silently corrected.
	ErrOutOfRange = errors.New("session: index out of range")
	// ErrNotRunning is returned for mutations outside in_progress, including
	// after submit or expiry.
	ErrNotRunning = errors.New("session: attempt is not in progress")
	// ErrNotFinished is returned when results are requested before the
	// attempt reached a terminal state.
	ErrNotFinished = errors.New("session: attempt is not finished")
)

// Config carries per-attempt parameters. Zero values fall back to the
// model defaults; nothing here is hard-coded in the engine.
type Config struct {
	Mode             model.Mode
	DurationSeconds  int
	PassingThreshold int
}

// Hooks are optional callbacks the owner wires in. They are invoked
// synchronously and must not call back into the session.
type Hooks struct {
	// HintCleared fires when a practice-mode answer should dismiss the
	// hint/explanation panel for that question.
	HintCleared func(index int)
	// Finished fires exactly once, on submit or expiry, with the completed
	// outcome. Persistence is fire-and-forget: a failing consumer must not
	// block results.
	Finished func(Outcome)
}

// Outcome is the immutable result of a finished attempt.
type Outcome struct {
	SubmissionID     string
	Status           model.AttemptStatus
	Mode             model.Mode
	Report           model.ScoreReport
	Answers          []model.Answer
	StartedAt        time.Time
	FinishedAt       time.Time
	TimeTakenSeconds int
	// Provisional marks exam-mode scores, which are pending external review
	// even though they are computed the same way as practice scores.
	Provisional bool
}

// DisplayStatus is a question's label in the navigator. Current wins over
// flagged, flagged over answered; the underlying facts stay available for
// badges regardless of the label.
type DisplayStatus string

const (
	DisplayCurrent    DisplayStatus = "current"
	DisplayFlagged    DisplayStatus = "flagged"
	DisplayAnswered   DisplayStatus = "answered"
	DisplayUnanswered DisplayStatus = "unanswered"
)

// Session is one attempt over a fixed question list. All methods are safe
// for concurrent use; internally every mutation is a single synchronous
// step under one lock.
type Session struct {
	mu        sync.Mutex
	questions []model.Question
	cfg       Config
	clock     Clock
	hooks     Hooks

	status    model.AttemptStatus
	mode      model.Mode
	cur       int
	ledger    *Ledger
	timer     Countdown
	startedAt time.Time
	outcome   *Outcome
}

// New validates the question list and builds an attempt in not_started.
func New(questions []model.Question, cfg Config, clock Clock, hooks Hooks) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	for i, q := range questions {
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d has %d options", ErrBadQuestion, i, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d answer key %d", ErrBadQuestion, i, q.CorrectOption)
		}
	}
	if cfg.Mode == "" {
		cfg.Mode = model.ModePractice
	}
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = model.DefaultDurationSeconds
	}
	if cfg.PassingThreshold <= 0 {
		cfg.PassingThreshold = model.DefaultPassingThreshold
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Session{
		questions: questions,
		cfg:       cfg,
		clock:     clock,
		hooks:     hooks,
		status:    model.StatusNotStarted,
		mode:      cfg.Mode,
		ledger:    NewLedger(len(questions)),
	}, nil
}

// Start moves the attempt to in_progress at question 0 and arms the
// countdown in exam mode.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != model.StatusNotStarted {
		return fmt.Errorf("session: start from %s: %w", s.status, ErrNotRunning)
	}
	s.status = model.StatusInProgress
	s.startedAt = s.clock.Now()
	s.cur = 0
	s.ledger.Visit(0)
	if s.mode == model.ModeExam {
		s.timer.Start(s.cfg.DurationSeconds)
	}
	return nil
}

// SetAnswer records or overwrites the selected option for a question.
// In practice mode it also fires the hint-cleared hook for that index.
func (s *Session) SetAnswer(index, option int) error {
	s.mu.Lock()
	if err := s.checkRunning(); err != nil {
		s.mu.Unlock()
		return err
	}
	if index < 0 || index >= len(s.questions) {
		s.mu.Unlock()
		return fmt.Errorf("session: question %d: %w", index, ErrOutOfRange)
	}
	if option < 0 || option >= len(s.questions[index].Options) {
		s.mu.Unlock()
		return fmt.Errorf("session: question %d option %d: %w", index, option, ErrOutOfRange)
	}
	s.ledger.Select(index, option)
	notify := s.mode == model.ModePractice && s.hooks.HintCleared != nil
	s.mu.Unlock()

	if notify {
		s.hooks.HintCleared(index)
	}
	return nil
}

// ToggleFlag flips the flag on a question.
func (s *Session) ToggleFlag(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRunning(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("session: question %d: %w", index, ErrOutOfRange)
	}
	s.ledger.ToggleFlag(index)
	return nil
}

// GoTo jumps directly to a question. Direct jumps are always permitted
// while in progress, in both modes.
func (s *Session) GoTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRunning(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("session: question %d: %w", index, ErrOutOfRange)
	}
	s.cur = index
	s.ledger.Visit(index)
	return nil
}

// Next advances one question. At the last question it is a no-op in
// practice mode; in exam mode it finishes the attempt.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRunning(); err != nil {
		return err
	}
	if s.cur == len(s.questions)-1 {
		if s.mode == model.ModeExam {
			s.finishLocked(model.StatusSubmitted)
		}
		return nil
	}
	s.cur++
	s.ledger.Visit(s.cur)
	return nil
}

// Previous steps back one question; a no-op at the first.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRunning(); err != nil {
		return err
	}
	if s.cur == 0 {
		return nil
	}
	s.cur--
	s.ledger.Visit(s.cur)
	return nil
}

// ToggleMode switches practice<->exam without touching the current index
// or the ledger. Entering exam mode resets the countdown to the full
// configured duration; leaving it stops the countdown.
func (s *Session) ToggleMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRunning(); err != nil {
		return err
	}
	if s.mode == model.ModeExam {
		s.mode = model.ModePractice
		s.timer.Stop()
	} else {
		s.mode = model.ModeExam
		s.timer.Start(s.cfg.DurationSeconds)
	}
	return nil
}

// Submit finishes the attempt and scores the ledger as-is.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRunning(); err != nil {
		return err
	}
	s.finishLocked(model.StatusSubmitted)
	return nil
}

// Tick delivers one countdown second. Ticks outside in_progress or in
// practice mode are absorbed; the tick that drains the countdown expires
// the attempt exactly once, scoring whatever ledger state exists.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != model.StatusInProgress || s.mode != model.ModeExam {
		return
	}
	if s.timer.Tick() {
		s.finishLocked(model.StatusExpired)
	}
}

// Retake builds a brand-new attempt over the same questions and config:
// fresh ledger, fresh countdown, index 0, not yet started.
func (s *Session) Retake() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh, _ := New(s.questions, s.cfg, s.clock, s.hooks)
	return fresh
}

// finishLocked runs the one transition into a terminal state. Guarded so
// a duplicate submit/expiry signal cannot double-score.
func (s *Session) finishLocked(status model.AttemptStatus) {
	if s.status.Terminal() {
		return
	}
	answers := s.ledger.Snapshot()
	report, err := score.Score(s.questions, answers, s.cfg.PassingThreshold)
	if err != nil {
		// New() guarantees a non-empty question list; reaching this is a bug.
		panic(err)
	}
	now := s.clock.Now()
	s.status = status
	s.timer.Pause()
	s.outcome = &Outcome{
		SubmissionID:     uuid.NewString(),
		Status:           status,
		Mode:             s.mode,
		Report:           report,
		Answers:          answers,
		StartedAt:        s.startedAt,
		FinishedAt:       now,
		TimeTakenSeconds: int(now.Sub(s.startedAt) / time.Second),
		Provisional:      s.mode == model.ModeExam,
	}
	if s.hooks.Finished != nil {
		s.hooks.Finished(*s.outcome)
	}
}

func (s *Session) checkRunning() error {
	if s.status != model.StatusInProgress {
		return fmt.Errorf("session: status %s: %w", s.status, ErrNotRunning)
	}
	return nil
}

// StatusOf labels a question for the navigator.
func (s *Session) StatusOf(index int) DisplayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusOfLocked(index)
}

func (s *Session) statusOfLocked(index int) DisplayStatus {
	switch {
	case index == s.cur && s.status == model.StatusInProgress:
		return DisplayCurrent
	case s.ledger.IsFlagged(index):
		return DisplayFlagged
	case s.ledger.IsAnswered(index):
		return DisplayAnswered
	default:
		return DisplayUnanswered
	}
}

// Status returns the attempt lifecycle state.
func (s *Session) Status() model.AttemptStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Mode returns the current mode.
func (s *Session) Mode() model.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// CurrentIndex returns the current question pointer.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Remaining returns the countdown seconds and whether a countdown is
// active. Practice mode has no countdown.
func (s *Session) Remaining() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != model.ModeExam {
		return 0, false
	}
	return s.timer.Remaining(), s.timer.Running() || s.timer.Expired()
}

// IsAnswered reports the underlying answered fact for badges.
func (s *Session) IsAnswered(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.IsAnswered(index)
}

// IsFlagged reports the underlying flagged fact for badges.
func (s *Session) IsFlagged(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.IsFlagged(index)
}

// SelectedOption returns the recorded option for a question, if any.
func (s *Session) SelectedOption(index int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.SelectedOption(index)
}

// Outcome returns the finished outcome, if the attempt is terminal.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}

// Questions exposes the immutable question list.
func (s *Session) Questions() []model.Question {
	return s.questions
}
