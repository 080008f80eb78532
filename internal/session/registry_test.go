package session

import (
	"errors"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func TestRegistry_OwnerOnly(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	id, err := r.Start(exampleQuiz(t), learner, &fakeStore{})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Do(id, "someone-else", func(*Controller) error { return nil }); !errors.Is(err, quiz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := r.Do("missing", learner.ID, func(*Controller) error { return nil }); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err = r.Do(id, learner.ID, func(c *Controller) error { return c.Answer("Q1", quiz.Single(1)) })
	if err != nil {
		t.Fatal(err)
	}
}

func TestRegistry_Discard(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	id, _ := r.Start(exampleQuiz(t), learner, &fakeStore{})
	if err := r.Discard(id, "intruder"); !errors.Is(err, quiz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := r.Discard(id, learner.ID); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 {
		t.Fatalf("discarded session still registered")
	}
}

func TestRegistry_SweepIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRegistry(30*time.Minute, nil)
	r.Now = func() time.Time { return now }

	stale, _ := r.Start(exampleQuiz(t), learner, &fakeStore{})
	now = now.Add(20 * time.Minute)
	fresh, _ := r.Start(exampleQuiz(t), learner, &fakeStore{})
	now = now.Add(15 * time.Minute)

	if n := r.Sweep(); n != 1 {
		t.Fatalf("swept %d want 1", n)
	}
	if err := r.Do(stale, learner.ID, func(*Controller) error { return nil }); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("stale session should be gone, got %v", err)
	}
	if err := r.Do(fresh, learner.ID, func(*Controller) error { return nil }); err != nil {
		t.Fatalf("fresh session should remain: %v", err)
	}
}

func TestRegistry_ZeroTTLNeverSweeps(t *testing.T) {
	r := NewRegistry(0, nil)
	r.Now = func() time.Time { return time.Unix(0, 0) }
	_, _ = r.Start(exampleQuiz(t), learner, &fakeStore{})
	r.Now = func() time.Time { return time.Unix(1<<40, 0) }
	if n := r.Sweep(); n != 0 || r.Len() != 1 {
		t.Fatalf("zero ttl swept %d", n)
	}
}
