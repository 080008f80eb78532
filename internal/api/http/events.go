package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type EventFeed interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// GET /events?after=0&limit=100
func EventsHandler(feed EventFeed, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		if limit > 1000 {
			limit = 1000
		}
		list, err := feed.Since(r.Context(), after, limit)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
