// Package overrides persists reviewer edits as a single JSON document in a
// key-value slot and reads them back for merging.
package overrides

import (
	"context"
	"encoding/json"
	"fmt"

	"qareview/internal/record"
	"qareview/pkg/logger"
	"qareview/store"
)

// StorageKey is the slot holding the override map.
const StorageKey = "qareview.overrides"

// KV is a store of textual values. Get reports found=false for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Bridge struct {
	kv  KV
	key string
}

func NewBridge(kv KV) *Bridge {
	return &Bridge{kv: kv, key: StorageKey}
}

// Encode returns the stored form of a working set. Map keys are sorted by
// encoding/json, so equal working sets encode to equal bytes.
func Encode(records []store.Record) ([]byte, error) {
	return json.Marshal(record.Overrides(records))
}

// Save replaces the stored override map with one built from records.
func (b *Bridge) Save(ctx context.Context, records []store.Record) error {
	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("encoding overrides: %w", err)
	}
	if err := b.kv.Put(ctx, b.key, string(data)); err != nil {
		return fmt.Errorf("writing overrides: %w", err)
	}
	return nil
}

// Load returns the stored override map. A missing, unreadable or malformed
// value yields an empty map.
func (b *Bridge) Load(ctx context.Context) store.OverrideMap {
	value, found, err := b.kv.Get(ctx, b.key)
	if err != nil {
		logger.Sugar.Warnf("Failed to read overrides, starting without them: %v", err)
		return store.OverrideMap{}
	}
	if !found {
		return store.OverrideMap{}
	}
	var m store.OverrideMap
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		logger.Sugar.Warnf("Ignoring malformed overrides: %v", err)
		return store.OverrideMap{}
	}
	if m == nil {
		m = store.OverrideMap{}
	}
	return m
}

func (b *Bridge) Clear(ctx context.Context) error {
	if err := b.kv.Delete(ctx, b.key); err != nil {
		return fmt.Errorf("clearing overrides: %w", err)
	}
	return nil
}
