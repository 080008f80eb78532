package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Answer is either a single option index or a set of option indices.
// The zero value is "no answer".
type Answer struct {
	set     bool
	multi   bool
	choice  int
	choices []int
}

func Single(i int) Answer { return Answer{set: true, choice: i} }

// Multi builds a set answer. Duplicates are collapsed and order is dropped.
func Multi(idx ...int) Answer {
	seen := make(map[int]struct{}, len(idx))
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return Answer{set: true, multi: true, choices: out}
}

func (a Answer) IsSet() bool   { return a.set }
func (a Answer) IsMulti() bool { return a.multi }

// Answered is false for the zero value and for an empty selection.
func (a Answer) Answered() bool {
	return a.set && (!a.multi || len(a.choices) > 0)
}

// Choice is the selected index of a single answer.
func (a Answer) Choice() int { return a.choice }

// Choices returns the selected indices in ascending order; a single answer
// yields a one-element slice.
func (a Answer) Choices() []int {
	if !a.set {
		return nil
	}
	if !a.multi {
		return []int{a.choice}
	}
	out := make([]int, len(a.choices))
	copy(out, a.choices)
	return out
}

func (a Answer) String() string {
	switch {
	case !a.set:
		return "<none>"
	case a.multi:
		return fmt.Sprint(a.choices)
	default:
		return fmt.Sprint(a.choice)
	}
}

// MarshalJSON encodes a single answer as a number and a set as an array.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch {
	case !a.set:
		return []byte("null"), nil
	case a.multi:
		if a.choices == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.choices)
	default:
		return json.Marshal(a.choice)
	}
}

var errAnswerShape = errors.New("answer must be an integer option index or an array of indices")

// UnmarshalJSON accepts only integers and arrays of integers; strings are
// rejected rather than coerced.
func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return errAnswerShape
	}
	switch b[0] {
	case 'n':
		if string(b) != "null" {
			return errAnswerShape
		}
		*a = Answer{}
		return nil
	case '[':
		var idx []int
		if err := json.Unmarshal(b, &idx); err != nil {
			return errAnswerShape
		}
		*a = Multi(idx...)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var i int
		if err := json.Unmarshal(b, &i); err != nil {
			return errAnswerShape
		}
		*a = Single(i)
		return nil
	default:
		return errAnswerShape
	}
}
