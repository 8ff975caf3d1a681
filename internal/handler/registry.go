package handler

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/prepgrid/prepgrid/internal/session"
)

// liveAttempt is one running attempt held in memory, keyed by an opaque
// token handed to the client at start.
type liveAttempt struct {
	token  string
	examID int64
	userID int64
	sess   *session.Session

	stop     chan struct{}
	stopOnce sync.Once
}

// stopTicker ends the attempt's ticker goroutine. Safe to call more than
// once; the stale-tick case is absorbed by the session itself.
func (la *liveAttempt) stopTicker() {
	la.stopOnce.Do(func() { close(la.stop) })
}

// registry holds live attempts. Completed attempts stay resident so the
// client can fetch results; abandoning or retaking removes them.
type registry struct {
	mu       sync.Mutex
	attempts map[string]*liveAttempt
}

func newRegistry() *registry {
	return &registry{attempts: make(map[string]*liveAttempt)}
}

func (r *registry) add(examID, userID int64, sess *session.Session) (*liveAttempt, error) {
	token, err := newAttemptToken()
	if err != nil {
		return nil, err
	}
	la := &liveAttempt{
		token:  token,
		examID: examID,
		userID: userID,
		sess:   sess,
		stop:   make(chan struct{}),
	}
	r.mu.Lock()
	r.attempts[token] = la
	r.mu.Unlock()

	// One tick per second for the attempt's whole life; the session
	// absorbs ticks in practice mode and after a terminal transition.
	go r.runTicker(la)
	return la, nil
}

func (r *registry) get(token string) (*liveAttempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	la, ok := r.attempts[token]
	return la, ok
}

// remove tears an attempt down: the ticker stops and in-progress ledger
// state is discarded. Persistence only ever happens through the finish
// hook, so an abandoned attempt leaves no record.
func (r *registry) remove(token string) bool {
	r.mu.Lock()
	la, ok := r.attempts[token]
	delete(r.attempts, token)
	r.mu.Unlock()
	if ok {
		la.stopTicker()
	}
	return ok
}

func (r *registry) runTicker(la *liveAttempt) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-la.stop:
			return
		case <-t.C:
			la.sess.Tick()
			if la.sess.Status().Terminal() {
				return
			}
		}
	}
}

func newAttemptToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
