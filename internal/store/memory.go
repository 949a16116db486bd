package store

import (
	"errors"
	"sync"

	"github.com/peetj/btc-tracker/internal/model"
)

var errWritesDisabled = errors.New("writes disabled")

// MemoryStore is a map-backed Store for tests and store-less runs. It does
// not survive restarts.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[int64]model.DailyRecord

	// FailWrites makes every write return a StorageError, for tests.
	FailWrites bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[int64]model.DailyRecord)}
}

func (m *MemoryStore) Put(rec model.DailyRecord) error {
	return m.PutAll([]model.DailyRecord{rec})
}

func (m *MemoryStore) PutAll(recs []model.DailyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return &StorageError{Op: "putAll", Err: errWritesDisabled}
	}
	for _, rec := range recs {
		m.recs[rec.Timestamp] = rec
	}
	return nil
}

func (m *MemoryStore) GetAll() ([]model.DailyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.DailyRecord, 0, len(m.recs))
	for _, rec := range m.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = make(map[int64]model.DailyRecord)
	return nil
}

func (m *MemoryStore) Stats() (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{Count: len(m.recs)}
	for ts := range m.recs {
		if st.FirstTimestamp == 0 || ts < st.FirstTimestamp {
			st.FirstTimestamp = ts
		}
		if ts > st.LastTimestamp {
			st.LastTimestamp = ts
		}
	}
	return st, nil
}
