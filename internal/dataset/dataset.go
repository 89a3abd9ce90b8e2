// Package dataset reads the base records under review from disk.
//
// Supported formats, chosen by file extension:
//
//   - .json: an array of records
//   - .jsonl: one record per line, blank lines ignored
//   - .yaml, .yml: a list of records
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"qareview/store"
)

var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Load reads and decodes the dataset at path.
func Load(path string) ([]store.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	records, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// Decode parses data in the format named by ext (".json", ".jsonl", ".yaml"
// or ".yml").
func Decode(ext string, data []byte) ([]store.Record, error) {
	var records []store.Record
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	case ".jsonl":
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for sc.Scan() {
			line++
			text := bytes.TrimSpace(sc.Bytes())
			if len(text) == 0 {
				continue
			}
			var r store.Record
			if err := json.Unmarshal(text, &r); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			records = append(records, r)
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if records == nil {
		records = []store.Record{}
	}
	return records, nil
}
