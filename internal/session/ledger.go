package session

import "github.com/prepgrid/prepgrid/internal/model"

// Ledger tracks per-question answer, flag, and visit state for one attempt.
// It holds facts only; freezing after submit/expiry is the Session's job.
type Ledger struct {
	entries []entry
}

type entry struct {
	selected int
	answered bool
	flagged  bool
	visited  bool
}

// NewLedger creates an empty ledger for n questions.
func NewLedger(n int) *Ledger {
	return &Ledger{entries: make([]entry, n)}
}

// Len returns the number of tracked questions.
func (l *Ledger) Len() int { return len(l.entries) }

// Select records or overwrites the chosen option for index.
func (l *Ledger) Select(index, option int) {
	e := &l.entries[index]
	e.selected = option
	e.answered = true
}

// ToggleFlag flips the flagged bit and returns the new value. Flagging is
// independent of answering.
func (l *Ledger) ToggleFlag(index int) bool {
	e := &l.entries[index]
	e.flagged = !e.flagged
	return e.flagged
}

// Visit marks index as seen.
func (l *Ledger) Visit(index int) {
	l.entries[index].visited = true
}

// IsAnswered reports whether index has a selected option.
func (l *Ledger) IsAnswered(index int) bool { return l.entries[index].answered }

// IsFlagged reports whether index is flagged.
func (l *Ledger) IsFlagged(index int) bool { return l.entries[index].flagged }

// Visited reports whether index has been shown.
func (l *Ledger) Visited(index int) bool { return l.entries[index].visited }

// SelectedOption returns the chosen option for index, if any.
func (l *Ledger) SelectedOption(index int) (int, bool) {
	e := l.entries[index]
	return e.selected, e.answered
}

// AnsweredCount returns how many questions have a selection.
func (l *Ledger) AnsweredCount() int {
	n := 0
	for _, e := range l.entries {
		if e.answered {
			n++
		}
	}
	return n
}

// FlaggedCount returns how many questions are flagged.
func (l *Ledger) FlaggedCount() int {
	n := 0
	for _, e := range l.entries {
		if e.flagged {
			n++
		}
	}
	return n
}

// Snapshot returns the sparse answer list used for scoring and persistence:
// one entry per question that was answered or flagged.
func (l *Ledger) Snapshot() []model.Answer {
	var answers []model.Answer
	for i, e := range l.entries {
		if !e.answered && !e.flagged {
			continue
		}
		a := model.Answer{Index: i, Flagged: e.flagged}
		if e.answered {
			sel := e.selected
			a.Selected = &sel
		}
		answers = append(answers, a)
	}
	return answers
}
