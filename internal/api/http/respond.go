package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error      string   `json:"error"`
	Field      string   `json:"field,omitempty"`
	QuestionID string   `json:"question_id,omitempty"`
	Option     *int     `json:"option,omitempty"`
	Missing    []string `json:"missing_question_ids,omitempty"`
}

// writeError maps engine errors to HTTP statuses. Storage details are logged,
// never returned.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	var (
		ve *quiz.ValidationError
		se *quiz.InvalidStateError
		st *quiz.StorageError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:      ve.Msg,
			Field:      ve.Field,
			QuestionID: ve.QuestionID,
			Option:     ve.Option,
			Missing:    ve.Missing,
		})
	case errors.As(err, &se):
		writeJSON(w, http.StatusConflict, errorBody{Error: se.Error()})
	case errors.Is(err, quiz.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, quiz.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
	case errors.As(err, &st):
		logger.OrNop(log).Error("storage failure", "op", st.Op, "key", st.Key, "error", st.Err)
		msg := "could not load data"
		if st.Op == "save" {
			msg = "could not save data"
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msg})
	default:
		logger.OrNop(log).Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decodeJSON reads the body into dst and runs struct validation. Failures
// come back as *quiz.ValidationError.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &quiz.ValidationError{Field: "body", Msg: "bad json: " + err.Error()}
	}
	if err := validate.Struct(dst); err != nil {
		var fe validator.ValidationErrors
		if errors.As(err, &fe) && len(fe) > 0 {
			f := fe[0]
			return &quiz.ValidationError{
				Field: f.Field(),
				Msg:   f.Field() + " failed " + f.Tag() + " check",
			}
		}
		return &quiz.ValidationError{Field: "body", Msg: err.Error()}
	}
	return nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
