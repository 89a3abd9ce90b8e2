package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"qareview/store"
)

var ErrNoDomain = errors.New("no domain selected")

// ExportJSON encodes the records of one domain as an indented JSON array.
// HTML in the text fields is written as is.
func ExportJSON(records []store.Record, domain string) ([]byte, error) {
	if domain == "" {
		return nil, ErrNoDomain
	}
	filtered := Filter(records, domain)
	if filtered == nil {
		filtered = []store.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(filtered); err != nil {
		return nil, fmt.Errorf("encoding %s export: %w", domain, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func ExportFilename(domain string) string {
	return domain + "_data.json"
}
