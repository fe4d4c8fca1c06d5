package record

import (
	"context"
	"sync"
	"time"

	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64]Record)}
}

func copyPayload(p packager.Payload) (map[string]any, map[string]string) {
	cols := make(map[string]any, len(p.Columns))
	for k, v := range p.Columns {
		cols[k] = v
	}
	cf := make(map[string]string, len(p.CustomFields))
	for k, v := range p.CustomFields {
		cf[k] = v
	}
	return cols, cf
}

func (s *MemoryStore) Create(_ context.Context, p packager.Payload) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now().UTC()
	cols, cf := copyPayload(p)
	r := Record{ID: s.nextID, EntityType: p.EntityType, Columns: cols, CustomFields: cf, CreatedAt: now, UpdatedAt: now}
	s.byID[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, p packager.Payload) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || r.EntityType != p.EntityType {
		return Record{}, customfield.ErrNotFound
	}
	r.Columns, r.CustomFields = copyPayload(p)
	r.UpdatedAt = time.Now().UTC()
	s.byID[id] = r
	return r, nil
}

func (s *MemoryStore) Get(_ context.Context, et customfield.EntityType, id int64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok || r.EntityType != et {
		return Record{}, customfield.ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) List(_ context.Context, et customfield.EntityType) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for id := int64(1); id <= s.nextID; id++ {
		if r, ok := s.byID[id]; ok && r.EntityType == et {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, et customfield.EntityType, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || r.EntityType != et {
		return customfield.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}
