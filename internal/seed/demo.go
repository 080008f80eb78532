package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/auth"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

const (
	DemoClassroom = "demo-class"
	DemoQuizID    = "demo-quiz"
	DemoLegacyID  = "demo-legacy"
)

// Demo accounts use the username as password, like the offline dev login.
var DemoAccounts = []auth.Account{
	{ID: "demo-admin", Username: "admin", DisplayName: "Demo Admin", Role: rbac.RoleAdmin},
	{ID: "demo-teacher", Username: "teacher", DisplayName: "Demo Teacher", Role: rbac.RoleTeacher},
	{ID: "demo-student", Username: "student", DisplayName: "Demo Student", Role: rbac.RoleStudent},
}

func demoQuiz(now time.Time) (quiz.Quiz, error) {
	q, err := quiz.Build(quiz.Draft{
		ClassroomID: DemoClassroom,
		Title:       "Solar system basics",
		Description: "Two warm-up questions.",
		Questions: []quiz.Question{
			{
				ID:      "q1",
				Prompt:  "Which planet is closest to the sun?",
				Options: []string{"Venus", "Mercury", "Mars"},
				Correct: quiz.Single(1),
				Points:  5,
			},
			{
				ID:      "q2",
				Prompt:  "Which of these are gas giants?",
				Options: []string{"Jupiter", "Earth", "Saturn"},
				Correct: quiz.Multi(0, 2),
				Points:  5,
			},
		},
	})
	if err != nil {
		return quiz.Quiz{}, err
	}
	q.ID = DemoQuizID
	q.CreatedBy = "demo-teacher"
	q.CreatedAt = now
	return q, nil
}

// Demo installs the demo accounts and quizzes. Existing data is left alone,
// so running it on every start is safe.
func Demo(ctx context.Context, dir *auth.Directory, quizzes *quiz.Store, log *logger.Logger) error {
	log = logger.OrNop(log)
	for _, a := range DemoAccounts {
		_, err := dir.Lookup(ctx, a.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, auth.ErrUnknownAccount) {
			return err
		}
		if err := dir.Put(ctx, a, a.Username); err != nil {
			return fmt.Errorf("seed account %s: %w", a.Username, err)
		}
		log.Info("demo account created", "username", a.Username, "role", a.Role)
	}

	now := time.Now().UTC()
	primary, err := demoQuiz(now)
	if err != nil {
		return err
	}
	legacy, err := quiz.FromLegacy(quiz.LegacyQuiz{
		ID:           DemoLegacyID,
		ClassroomID:  DemoClassroom,
		Title:        "Quick check",
		Question:     "How many moons does Mars have?",
		Options:      []string{"0", "1", "2"},
		CorrectIndex: 2,
		Points:       3,
		CreatedBy:    "demo-teacher",
		CreatedAt:    now,
	})
	if err != nil {
		return err
	}
	for _, q := range []quiz.Quiz{primary, legacy} {
		_, err := quizzes.Get(ctx, q.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, quiz.ErrNotFound) {
			return err
		}
		if err := quizzes.Import(ctx, q); err != nil {
			return fmt.Errorf("seed quiz %s: %w", q.ID, err)
		}
	}
	return nil
}
