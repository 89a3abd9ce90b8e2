package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"qareview/internal/debounce"
	"qareview/internal/overrides"
	"qareview/internal/record"
	"qareview/internal/workset"
	"qareview/pkg/logger"
	"qareview/store"
)

const saveTimeout = 10 * time.Second

// Loader returns the base records of the review, as stored on disk.
type Loader func() ([]store.Record, error)

type ReviewService struct {
	State  *workset.Store
	Bridge *overrides.Bridge

	load  Loader
	saver *debounce.Debouncer

	mu     sync.Mutex
	onSave []func(error)

	// saveMu orders writes: each one reads the working set after the previous
	// write has finished.
	saveMu sync.Mutex
}

// NewReviewService wires the working set to the persistence bridge. Edits are
// written to storage once no edit has arrived for saveDelay.
func NewReviewService(state *workset.Store, bridge *overrides.Bridge, load Loader, saveDelay time.Duration) *ReviewService {
	s := &ReviewService{State: state, Bridge: bridge, load: load}
	s.saver = debounce.New(saveDelay, s.autoSave)
	return s
}

// OnSave registers fn to be told about the outcome of every write.
func (s *ReviewService) OnSave(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSave = append(s.onSave, fn)
}

// Load reads the base records, merges persisted overrides and installs the
// result as the working set. Edits still waiting for the save timer are written
// first. On failure the previous working set is kept.
func (s *ReviewService) Load(ctx context.Context) error {
	s.State.Dispatch(workset.StartLoad{})
	base, err := s.load()
	if err != nil {
		s.State.Dispatch(workset.LoadFailed{Err: err})
		logger.Sugar.Errorf("Failed to load dataset: %v", err)
		return err
	}

	var unsaved store.OverrideMap
	if s.saver.Pending() {
		if err := s.Save(ctx); err != nil {
			logger.Sugar.Warnf("Could not save pending edits before reload, keeping them in memory: %v", err)
			unsaved = record.Overrides(s.State.Records())
		}
	}
	stored := s.Bridge.Load(ctx)
	for key, o := range unsaved {
		stored[key] = o
	}
	merged := record.Merge(base, stored)
	s.State.Dispatch(workset.LoadSucceeded{Records: merged})
	if unsaved != nil {
		s.saver.Trigger()
	}
	logger.Sugar.Infof("Loaded %d records across %d domains", len(merged), len(record.Domains(merged)))
	return nil
}

func (s *ReviewService) Status() workset.State {
	return s.State.State()
}

func (s *ReviewService) Domains() []record.DomainGroup {
	return record.Partition(s.State.Records())
}

// DefaultDomain is the domain of the first record, or "" when there is none.
func (s *ReviewService) DefaultDomain() string {
	records := s.State.Records()
	if len(records) == 0 {
		return ""
	}
	return records[0].Domain
}

func (s *ReviewService) Records(domain string) []store.Record {
	return record.Filter(s.State.Records(), domain)
}

func (s *ReviewService) Page(domain string, page, pageSize int) record.Page {
	return record.Paginate(s.Records(domain), page, pageSize)
}

// Edit changes the question or answer of the records with key and schedules a
// save. It returns the key the records carry after the edit.
func (s *ReviewService) Edit(key, field, value string) (string, error) {
	var newKey string
	_, err := s.State.Update(func(rs []store.Record) ([]store.Record, error) {
		out, k, err := record.ApplyEdit(rs, key, field, value)
		newKey = k
		return out, err
	})
	if err != nil {
		return "", err
	}
	s.saver.Trigger()
	return newKey, nil
}

func (s *ReviewService) SetStatus(key string, status store.Status) error {
	_, err := s.State.Update(func(rs []store.Record) ([]store.Record, error) {
		return record.MarkStatus(rs, key, status)
	})
	if err != nil {
		return err
	}
	s.saver.Trigger()
	return nil
}

func (s *ReviewService) MarkCorrect(key string) error {
	return s.SetStatus(key, store.StatusCorrect)
}

func (s *ReviewService) MarkIncorrect(key string) error {
	return s.SetStatus(key, store.StatusIncorrect)
}

// Save writes the current working set now, replacing any scheduled save.
func (s *ReviewService) Save(ctx context.Context) error {
	s.saver.Cancel()
	return s.persist(ctx)
}

// SavePending reports whether an edit is waiting to be written.
func (s *ReviewService) SavePending() bool {
	return s.saver.Pending()
}

// Clear deletes the persisted overrides. The working set is left as is and a
// scheduled save is dropped so it cannot bring the overrides back.
func (s *ReviewService) Clear(ctx context.Context) error {
	s.saver.Cancel()
	if err := s.Bridge.Clear(ctx); err != nil {
		return err
	}
	logger.Sugar.Info("Cleared persisted overrides")
	return nil
}

// Export returns the indented JSON of one domain and its download name.
func (s *ReviewService) Export(domain string) ([]byte, string, error) {
	data, err := record.ExportJSON(s.State.Records(), domain)
	if err != nil {
		return nil, "", err
	}
	return data, record.ExportFilename(domain), nil
}

// Dispose cancels a scheduled save. Call Save first to keep pending edits.
func (s *ReviewService) Dispose() {
	s.saver.Dispose()
}

func (s *ReviewService) autoSave() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.persist(ctx); err != nil {
		logger.Sugar.Errorf("Auto-save failed: %v", err)
	}
}

func (s *ReviewService) persist(ctx context.Context) error {
	s.saveMu.Lock()
	records := s.State.Records()
	err := s.Bridge.Save(ctx, records)
	s.saveMu.Unlock()
	if err != nil {
		err = fmt.Errorf("saving %d records: %w", len(records), err)
	} else {
		logger.Sugar.Infof("Saved overrides for %d records", len(records))
	}

	s.mu.Lock()
	hooks := append([]func(error){}, s.onSave...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(err)
	}
	return err
}
