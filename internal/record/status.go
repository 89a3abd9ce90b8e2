package record

import (
	"errors"
	"fmt"

	"qareview/store"
)

var (
	ErrUnknownField  = errors.New("field must be question or answer")
	ErrInvalidStatus = errors.New("status must be correct or incorrect")
)

const (
	FieldQuestion = "question"
	FieldAnswer   = "answer"
)

// MarkStatus sets status on every record whose key equals key. No match is
// not an error.
func MarkStatus(records []store.Record, key string, status store.Status) ([]store.Record, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	out := make([]store.Record, len(records))
	for i, r := range records {
		if DeriveKey(r) == key {
			r.Status = status
		}
		out[i] = r
	}
	return out, nil
}

func MarkCorrect(records []store.Record, key string) []store.Record {
	out, _ := MarkStatus(records, key, store.StatusCorrect)
	return out
}

func MarkIncorrect(records []store.Record, key string) []store.Record {
	out, _ := MarkStatus(records, key, store.StatusIncorrect)
	return out
}

// ApplyEdit replaces the question or answer of every record whose key equals
// key. It also returns the key the edited records carry afterwards, or the
// original key when nothing matched.
func ApplyEdit(records []store.Record, key, field, value string) ([]store.Record, string, error) {
	if field != FieldQuestion && field != FieldAnswer {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	newKey := key
	out := make([]store.Record, len(records))
	for i, r := range records {
		if DeriveKey(r) == key {
			if field == FieldQuestion {
				r.Question = value
			} else {
				r.Answer = value
			}
			newKey = DeriveKey(r)
		}
		out[i] = r
	}
	return out, newKey, nil
}
