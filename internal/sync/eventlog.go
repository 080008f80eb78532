package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const TypeAttemptSubmitted = "AttemptSubmitted"

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	site := e.SiteID
	if site == "" {
		site = r.siteID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		site, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

type attemptSubmitted struct {
	AttemptID   string    `json:"attempt_id"`
	QuizID      string    `json:"quiz_id"`
	StudentID   string    `json:"student_id"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"total_points"`
	CompletedAt time.Time `json:"completed_at"`
}

// AttemptSubmitted records a finalized attempt, keyed by attempt id.
func (r *EventRepo) AttemptSubmitted(ctx context.Context, a quiz.Attempt) error {
	b, err := json.Marshal(attemptSubmitted{
		AttemptID:   a.ID,
		QuizID:      a.QuizID,
		StudentID:   a.StudentID,
		Score:       a.Score,
		TotalPoints: a.TotalPoints,
		CompletedAt: a.CompletedAt,
	})
	if err != nil {
		return err
	}
	return r.Append(ctx, Event{Type: TypeAttemptSubmitted, Key: a.ID, DataJSON: string(b)})
}

// Since returns events with seq greater than after, oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
