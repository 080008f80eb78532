package quiz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

const quizzesKey = "quizzes"

// Store persists the quiz collection.
type Store struct {
	kv  storage.KV
	log *logger.Logger
	mu  sync.Mutex

	Now   func() time.Time
	NewID func() string
}

func NewStore(kv storage.KV, log *logger.Logger) *Store {
	return &Store{
		kv:    kv,
		log:   logger.OrNop(log),
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// Create publishes a quiz authored by author. Only roles holding quiz:create
// may author.
func (s *Store) Create(ctx context.Context, author rbac.Identity, d Draft) (Quiz, error) {
	if !rbac.Can(author, "quiz:create") {
		return Quiz{}, fmt.Errorf("create quiz as %q: %w", author.Role, ErrForbidden)
	}
	q, err := Build(d)
	if err != nil {
		return Quiz{}, err
	}
	q.ID = s.NewID()
	q.CreatedBy = author.ID
	q.CreatedAt = s.Now().UTC()
	return q, s.put(ctx, q)
}

// Import stores an already-built quiz (legacy conversion, seeding). Published
// quizzes are immutable, so an id that is already taken is rejected.
func (s *Store) Import(ctx context.Context, q Quiz) error {
	if q.ID == "" {
		return invalid("id", "", "quiz id required")
	}
	if len(q.Questions) == 0 {
		return invalid("questions", "", "quiz needs at least one question")
	}
	qs := make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Multi = qq.Correct.IsMulti()
		qs[i] = qq
	}
	q.Questions = qs
	q.TotalPoints = SumPoints(q.Questions)
	return s.put(ctx, q)
}

// put appends q to the collection. It never replaces an existing quiz.
func (s *Store) put(ctx context.Context, q Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := loadList[Quiz](ctx, s.kv, s.log, quizzesKey)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing.ID == q.ID {
			return invalid("id", "", fmt.Sprintf("quiz %q already exists", q.ID))
		}
	}
	list = append(list, q)
	if err := saveList(ctx, s.kv, quizzesKey, list); err != nil {
		return err
	}
	s.log.Info("quiz stored", "quiz_id", q.ID, "questions", len(q.Questions), "total_points", q.TotalPoints)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Quiz, error) {
	list, err := loadList[Quiz](ctx, s.kv, s.log, quizzesKey)
	if err != nil {
		return Quiz{}, err
	}
	for _, q := range list {
		if q.ID == id {
			return q, nil
		}
	}
	return Quiz{}, fmt.Errorf("quiz %q: %w", id, ErrNotFound)
}

// List returns quizzes of a classroom in creation order; an empty
// classroomID returns all quizzes.
func (s *Store) List(ctx context.Context, classroomID string) ([]Quiz, error) {
	list, err := loadList[Quiz](ctx, s.kv, s.log, quizzesKey)
	if err != nil {
		return nil, err
	}
	if classroomID == "" {
		return list, nil
	}
	out := make([]Quiz, 0, len(list))
	for _, q := range list {
		if q.ClassroomID == classroomID {
			out = append(out, q)
		}
	}
	return out, nil
}
