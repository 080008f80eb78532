package quiz

import (
	"context"
	"strings"
	"sync"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

const attemptsPrefix = "attempts/"

func attemptsKey(quizID string) string { return attemptsPrefix + quizID }

// AttemptStore is an append-only log of finalized attempts, one collection
// per quiz. Several attempts per (quiz, student) are allowed.
type AttemptStore struct {
	kv  storage.KV
	log *logger.Logger
	mu  sync.Mutex
}

func NewAttemptStore(kv storage.KV, log *logger.Logger) *AttemptStore {
	return &AttemptStore{kv: kv, log: logger.OrNop(log)}
}

func (s *AttemptStore) Save(ctx context.Context, a Attempt) error {
	if a.ID == "" || a.QuizID == "" || a.StudentID == "" {
		return invalid("attempt", "", "attempt id, quiz id and student id required")
	}
	key := attemptsKey(a.QuizID)

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := loadList[Attempt](ctx, s.kv, s.log, key)
	if err != nil {
		return err
	}
	list = append(list, a)
	if err := saveList(ctx, s.kv, key, list); err != nil {
		return err
	}
	s.log.Debug("attempt saved", "attempt_id", a.ID, "quiz_id", a.QuizID, "student_id", a.StudentID, "score", a.Score)
	return nil
}

// FindByQuiz returns every attempt for the quiz. Order is not guaranteed.
func (s *AttemptStore) FindByQuiz(ctx context.Context, quizID string) ([]Attempt, error) {
	return loadList[Attempt](ctx, s.kv, s.log, attemptsKey(quizID))
}

// FindLatestByStudent returns the student's attempt with the greatest
// completion time. On equal times the later-appended attempt wins.
func (s *AttemptStore) FindLatestByStudent(ctx context.Context, quizID, studentID string) (Attempt, bool, error) {
	list, err := s.FindByQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, false, err
	}
	var (
		latest Attempt
		found  bool
	)
	for _, a := range list {
		if a.StudentID != studentID {
			continue
		}
		if !found || !a.CompletedAt.Before(latest.CompletedAt) {
			latest, found = a, true
		}
	}
	return latest, found, nil
}

// FindByStudent collects a student's attempts across all quizzes.
func (s *AttemptStore) FindByStudent(ctx context.Context, studentID string) ([]Attempt, error) {
	keys, err := s.kv.Keys(ctx, attemptsPrefix)
	if err != nil {
		return nil, &StorageError{Op: "load", Key: attemptsPrefix + "*", Err: err}
	}
	var out []Attempt
	for _, k := range keys {
		if strings.TrimPrefix(k, attemptsPrefix) == "" {
			continue
		}
		list, err := loadList[Attempt](ctx, s.kv, s.log, k)
		if err != nil {
			return nil, err
		}
		for _, a := range list {
			if a.StudentID == studentID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}
