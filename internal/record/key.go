// Package record holds the pure operations over a working set of review
// records: identity keys, merging saved overrides, domain grouping, status
// and text edits, and export.
//
// Every function that changes records returns a new slice and leaves its
// input untouched.
package record

import "qareview/store"

const keySeparator = "-"

// DeriveKey returns the identity key used to match a record against saved
// overrides. It depends only on the document id, question and answer, so an
// edit to the question or answer changes the key.
func DeriveKey(r store.Record) string {
	return r.DocumentID + keySeparator + r.Question + keySeparator + r.Answer
}
