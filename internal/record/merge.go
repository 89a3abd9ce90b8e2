package record

import "qareview/store"

// Merge applies saved overrides to freshly loaded base records. A record whose
// key has an override takes each non-empty override field; empty override
// fields keep the base value. Overrides with no matching base record are
// dropped. Order follows base.
func Merge(base []store.Record, overrides store.OverrideMap) []store.Record {
	merged := make([]store.Record, len(base))
	for i, r := range base {
		if o, ok := overrides[DeriveKey(r)]; ok {
			r = applySnapshot(r, o)
		}
		merged[i] = r
	}
	return merged
}

func applySnapshot(r store.Record, o store.Snapshot) store.Record {
	if o.Question != "" {
		r.Question = o.Question
	}
	if o.Answer != "" {
		r.Answer = o.Answer
	}
	if o.Status != "" {
		r.Status = o.Status
	}
	if o.Document != "" {
		r.Document = o.Document
	}
	if o.QuestionType != "" {
		r.QuestionType = o.QuestionType
	}
	return r
}

// Overrides builds the override map for a working set. Records sharing a key
// collapse into one entry; the later record wins.
func Overrides(records []store.Record) store.OverrideMap {
	m := make(store.OverrideMap, len(records))
	for _, r := range records {
		m[DeriveKey(r)] = store.SnapshotOf(r)
	}
	return m
}
