package factstore

import (
	"context"
	"sync"
	"time"

	"github.com/marek/jobshield/internal/types"
)

// MemoryStore is an in-memory Store. It backs offline CLI runs and tests.
type MemoryStore struct {
	mu sync.Mutex

	blacklist    types.BlacklistDoc
	hasBlacklist bool
	blacklistErr error

	model    types.ModelBlob
	hasModel bool
	modelErr error

	persistErr error
	delay      time.Duration

	blacklistCalls int
	modelCalls     int

	results  []*types.PageResult
	feedback []types.FeedbackRecord
}

// NewMemoryStore returns an empty in-memory store. Fetches against an
// empty store report DataUnavailable, mirroring a missing document.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetBlacklist seeds the blacklist document
func (m *MemoryStore) SetBlacklist(doc types.BlacklistDoc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklist = doc
	m.hasBlacklist = true
	m.blacklistErr = nil
}

// SetModel seeds the model document
func (m *MemoryStore) SetModel(blob types.ModelBlob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = blob
	m.hasModel = true
	m.modelErr = nil
}

// FailBlacklist makes subsequent blacklist fetches return err
func (m *MemoryStore) FailBlacklist(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklistErr = err
}

// FailModel makes subsequent model fetches return err
func (m *MemoryStore) FailModel(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelErr = err
}

// FailPersist makes subsequent persists return err
func (m *MemoryStore) FailPersist(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistErr = err
}

// SetDelay makes every fetch sleep before answering
func (m *MemoryStore) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *MemoryStore) wait(ctx context.Context) error {
	m.mu.Lock()
	d := m.delay
	m.mu.Unlock()
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchDomainBlacklist returns the seeded blacklist document
func (m *MemoryStore) FetchDomainBlacklist(ctx context.Context) (types.BlacklistDoc, error) {
	if err := m.wait(ctx); err != nil {
		return types.BlacklistDoc{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklistCalls++
	if m.blacklistErr != nil {
		return types.BlacklistDoc{}, m.blacklistErr
	}
	if !m.hasBlacklist {
		return types.BlacklistDoc{}, &DataUnavailableError{Doc: "fraud_data/fraud_urls"}
	}
	return m.blacklist, nil
}

// FetchModelBlob returns the seeded model document
func (m *MemoryStore) FetchModelBlob(ctx context.Context) (types.ModelBlob, error) {
	if err := m.wait(ctx); err != nil {
		return types.ModelBlob{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelCalls++
	if m.modelErr != nil {
		return types.ModelBlob{}, m.modelErr
	}
	if !m.hasModel {
		return types.ModelBlob{}, &DataUnavailableError{Doc: "nlp_models/current_model"}
	}
	return m.model, nil
}

// PersistAnalysisResult records the result in memory
func (m *MemoryStore) PersistAnalysisResult(ctx context.Context, result *types.PageResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.persistErr != nil {
		return m.persistErr
	}
	m.results = append(m.results, result)
	return nil
}

// PersistFeedback records the feedback in memory
func (m *MemoryStore) PersistFeedback(ctx context.Context, record types.FeedbackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.persistErr != nil {
		return m.persistErr
	}
	m.feedback = append(m.feedback, record)
	return nil
}

// BlacklistCalls reports how many blacklist fetches reached the store
func (m *MemoryStore) BlacklistCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blacklistCalls
}

// ModelCalls reports how many model fetches reached the store
func (m *MemoryStore) ModelCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modelCalls
}

// Results returns a copy of the persisted analysis results
func (m *MemoryStore) Results() []*types.PageResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.PageResult, len(m.results))
	copy(out, m.results)
	return out
}

// Feedback returns a copy of the persisted feedback records
func (m *MemoryStore) Feedback() []types.FeedbackRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.FeedbackRecord, len(m.feedback))
	copy(out, m.feedback)
	return out
}
