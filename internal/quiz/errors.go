package quiz

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// ValidationError is a recoverable input problem. QuestionID and Option point
// at the offending item when there is one; Missing lists unanswered questions
// for an incomplete submission.
type ValidationError struct {
	Field      string   `json:"field,omitempty"`
	QuestionID string   `json:"question_id,omitempty"`
	Option     *int     `json:"option,omitempty"`
	Missing    []string `json:"missing_question_ids,omitempty"`
	Msg        string   `json:"message"`
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation: ")
	b.WriteString(e.Msg)
	if e.QuestionID != "" {
		fmt.Fprintf(&b, " (question %s", e.QuestionID)
		if e.Option != nil {
			fmt.Fprintf(&b, ", option %d", *e.Option)
		}
		b.WriteString(")")
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Missing, ", "))
	}
	return b.String()
}

func invalid(field, questionID, msg string) *ValidationError {
	return &ValidationError{Field: field, QuestionID: questionID, Msg: msg}
}

func invalidOption(questionID string, option int, msg string) *ValidationError {
	return &ValidationError{Field: "options", QuestionID: questionID, Option: &option, Msg: msg}
}

// Incomplete reports a submission with unanswered questions.
func Incomplete(missing []string) *ValidationError {
	return &ValidationError{Field: "answers", Missing: missing, Msg: "incomplete submission"}
}

// InvalidStateError is returned for any operation on a finished session.
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s not allowed in state %s", e.Op, e.State)
}

// StorageError wraps a failed read or write of the persistence collaborator.
type StorageError struct {
	Op  string // load|save
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: could not %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsInvalidState(err error) bool {
	var v *InvalidStateError
	return errors.As(err, &v)
}

func IsStorage(err error) bool {
	var v *StorageError
	return errors.As(err, &v)
}
