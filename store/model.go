package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
)

// Valid reports whether s is one of the review outcomes. The empty status is
// not valid; it means the record has not been reviewed yet.
func (s Status) Valid() bool {
	return s == StatusCorrect || s == StatusIncorrect
}

// Record is one question/answer/evidence unit under review.
type Record struct {
	DocumentID   string     `json:"document_id" yaml:"document_id"`
	Domain       string     `json:"domain" yaml:"domain"`
	Question     string     `json:"question" yaml:"question"`
	Answer       string     `json:"answer" yaml:"answer"`
	ChunkTexts   ChunkTexts `json:"chunk_texts" yaml:"chunk_texts"`
	Document     string     `json:"document,omitempty" yaml:"document,omitempty"`
	QuestionType string     `json:"question_type,omitempty" yaml:"question_type,omitempty"`
	Status       Status     `json:"status,omitempty" yaml:"status,omitempty"`
}

// ChunkTexts holds evidence passages. The dataset stores them either as a
// single string or as a list; the original shape is kept for re-encoding.
type ChunkTexts struct {
	Passages []string
	IsList   bool
}

func SingleChunk(s string) ChunkTexts {
	return ChunkTexts{Passages: []string{s}}
}

func ChunkList(passages ...string) ChunkTexts {
	return ChunkTexts{Passages: passages, IsList: true}
}

// Text joins the passages with newlines, the way the review table renders them.
func (c ChunkTexts) Text() string {
	return strings.Join(c.Passages, "\n")
}

func (c ChunkTexts) MarshalJSON() ([]byte, error) {
	if c.IsList {
		if c.Passages == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.Passages)
	}
	return json.Marshal(c.Text())
}

func (c *ChunkTexts) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ChunkTexts{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*c = ChunkList(list...)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("chunk_texts must be a string or an array of strings")
	}
	*c = SingleChunk(s)
	return nil
}

func (c ChunkTexts) MarshalYAML() (interface{}, error) {
	if c.IsList {
		return c.Passages, nil
	}
	return c.Text(), nil
}

func (c *ChunkTexts) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*c = ChunkList(list...)
	case yaml.ScalarNode:
		*c = SingleChunk(node.Value)
	default:
		return errors.New("chunk_texts must be a string or a list of strings")
	}
	return nil
}

// Snapshot is the saved edit state of one record, keyed by its identity key
// inside an OverrideMap.
type Snapshot struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	Status       Status `json:"status,omitempty"`
	Document     string `json:"document,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
}

// OverrideMap maps identity keys to saved snapshots.
type OverrideMap map[string]Snapshot

func SnapshotOf(r Record) Snapshot {
	return Snapshot{
		Question:     r.Question,
		Answer:       r.Answer,
		Status:       r.Status,
		Document:     r.Document,
		QuestionType: r.QuestionType,
	}
}
