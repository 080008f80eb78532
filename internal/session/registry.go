package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// Registry holds live controllers by session id. Each entry has its own lock
// so one learner's actions run strictly in order.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	log     *logger.Logger

	Now   func() time.Time
	NewID func() string
}

type entry struct {
	mu      sync.Mutex
	ctrl    *Controller
	owner   string
	touched time.Time
}

func NewRegistry(ttl time.Duration, log *logger.Logger) *Registry {
	return &Registry{
		entries: map[string]*entry{},
		ttl:     ttl,
		log:     logger.OrNop(log),
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
}

// Start creates a controller for student and returns its session id.
func (r *Registry) Start(q quiz.Quiz, student rbac.Identity, store AttemptSaver, opts ...Option) (string, error) {
	c, err := New(q, student, store, append([]Option{WithLogger(r.log)}, opts...)...)
	if err != nil {
		return "", err
	}
	id := r.NewID()
	r.mu.Lock()
	r.entries[id] = &entry{ctrl: c, owner: student.ID, touched: r.Now()}
	r.mu.Unlock()
	r.log.Debug("session started", "session_id", id, "quiz_id", q.ID, "student_id", student.ID)
	return id, nil
}

func (r *Registry) lookup(id, ownerID string) (*entry, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, quiz.ErrNotFound)
	}
	if e.owner != ownerID {
		return nil, fmt.Errorf("session %q: %w", id, quiz.ErrForbidden)
	}
	return e, nil
}

// Do runs fn with exclusive access to the owner's controller.
func (r *Registry) Do(id, ownerID string, fn func(c *Controller) error) error {
	e, err := r.lookup(id, ownerID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = r.Now()
	return fn(e.ctrl)
}

// Discard abandons a session. Nothing was persisted for it, so nothing is
// cleaned up beyond dropping the controller.
func (r *Registry) Discard(id, ownerID string) error {
	if _, err := r.lookup(id, ownerID); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops sessions idle for longer than the ttl and reports how many
// were removed. A zero ttl disables sweeping.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.Now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.entries {
		if !e.mu.TryLock() {
			continue // in use
		}
		idle := e.touched.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(r.entries, id)
			n++
		}
	}
	if n > 0 {
		r.log.Info("idle sessions swept", "count", n)
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if r.ttl <= 0 || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}
