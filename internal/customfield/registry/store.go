package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Store persists field definitions. Implementations must keep fieldName
// unique per entity type and must never change the fieldName of an
// existing definition.
type Store interface {
	Source
	Get(ctx context.Context, et customfield.EntityType, id int64) (customfield.FieldDefinition, error)
	Create(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error)
	Update(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error)
	Delete(ctx context.Context, et customfield.EntityType, id int64) error
}

// prepareCreate validates def and assigns a generated fieldName when none
// is given.
func prepareCreate(def customfield.FieldDefinition, existing []customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	def.FieldName = strings.TrimSpace(def.FieldName)
	if def.FieldName == "" {
		def.FieldName = customfield.NextFieldName(existing)
	}
	if def.FieldType == "" {
		def.FieldType = customfield.TypeText
	}
	if err := def.Check(); err != nil {
		return def, err
	}
	if _, ok := customfield.Find(existing, def.FieldName); ok {
		return def, fmt.Errorf("%w: %s", customfield.ErrDuplicateField, def.FieldName)
	}
	return def, nil
}

// MemoryStore keeps definitions in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]customfield.FieldDefinition
	order  []int64
}

// NewMemoryStore returns a store pre-populated with defs.
func NewMemoryStore(defs ...customfield.FieldDefinition) *MemoryStore {
	s := &MemoryStore{byID: make(map[int64]customfield.FieldDefinition)}
	for _, d := range defs {
		_, _ = s.Create(context.Background(), d)
	}
	return s
}

func (s *MemoryStore) Fields(_ context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(et), nil
}

func (s *MemoryStore) list(et customfield.EntityType) []customfield.FieldDefinition {
	var out []customfield.FieldDefinition
	for _, id := range s.order {
		if d, ok := s.byID[id]; ok && d.EntityType == et {
			out = append(out, d)
		}
	}
	SortFields(out)
	return out
}

func (s *MemoryStore) Get(_ context.Context, et customfield.EntityType, id int64) (customfield.FieldDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	if !ok || d.EntityType != et {
		return customfield.FieldDefinition{}, customfield.ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) Create(_ context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, err := prepareCreate(def, s.list(def.EntityType))
	if err != nil {
		return def, err
	}
	s.nextID++
	def.ID = s.nextID
	s.byID[def.ID] = def
	s.order = append(s.order, def.ID)
	return def, nil
}

func (s *MemoryStore) Update(_ context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[def.ID]
	if !ok || old.EntityType != def.EntityType {
		return def, customfield.ErrNotFound
	}
	def.FieldName = old.FieldName
	if err := def.Check(); err != nil {
		return def, err
	}
	s.byID[def.ID] = def
	return def, nil
}

func (s *MemoryStore) Delete(_ context.Context, et customfield.EntityType, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok || d.EntityType != et {
		return customfield.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// CountByEntity returns the number of definitions per entity type.
func (s *MemoryStore) CountByEntity(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make(map[string]int)
	for _, d := range s.byID {
		res[string(d.EntityType)]++
	}
	return res, nil
}
