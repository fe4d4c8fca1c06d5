package registry

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/faciam-dev/crmfields/internal/customfield/registry/codec"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

//go:embed standard.yaml
var standardYAML []byte

type standardMap = map[customfield.EntityType][]customfield.FieldDefinition

// StandardSet holds the built-in fields of every entity type. The set can be
// replaced at runtime from an override file.
type StandardSet struct {
	cur    atomic.Value // standardMap
	path   string
	logger *slog.Logger
}

// DefaultStandard returns the embedded standard field table.
func DefaultStandard() *StandardSet {
	s, err := NewStandardSet(standardYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded standard fields: %v", err))
	}
	return s
}

// NewStandardSet decodes a YAML document in the registry codec format.
func NewStandardSet(data []byte) (*StandardSet, error) {
	m, err := codec.DecodeYAML(data)
	if err != nil {
		return nil, err
	}
	s := &StandardSet{logger: slog.Default()}
	s.store(m)
	return s, nil
}

func (s *StandardSet) store(m standardMap) {
	for et, defs := range m {
		for i := range defs {
			defs[i].Standard = true
		}
		m[et] = defs
	}
	s.cur.Store(m)
}

// Fields returns a copy of the standard fields for et.
func (s *StandardSet) Fields(et customfield.EntityType) []customfield.FieldDefinition {
	if s == nil {
		return nil
	}
	m, _ := s.cur.Load().(standardMap)
	src := m[et]
	out := make([]customfield.FieldDefinition, len(src))
	copy(out, src)
	return out
}

// LoadFile replaces the set with the contents of path.
func (s *StandardSet) LoadFile(path string) error {
	b, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return fmt.Errorf("read standard fields: %w", err)
	}
	m, err := codec.DecodeYAML(b)
	if err != nil {
		return fmt.Errorf("parse standard fields: %w", err)
	}
	s.path = path
	s.store(m)
	s.log().Info("standard fields loaded", "path", path, "entities", len(m))
	return nil
}

// Watch reloads the override file whenever it changes until ctx is done.
func (s *StandardSet) Watch(ctx context.Context) {
	if s.path == "" {
		return
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log().Error("watcher", "err", err)
		return
	}
	defer w.Close()
	if err := w.Add(s.path); err != nil {
		s.log().Error("watch standard fields", "path", s.path, "err", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.Events:
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				time.Sleep(200 * time.Millisecond)
				if err := s.LoadFile(s.path); err != nil {
					s.log().Error("reload failed", "err", err)
				}
			}
		case err := <-w.Errors:
			s.log().Error("watch error", "err", err)
		}
	}
}

// SetLogger replaces the logger used for reload messages.
func (s *StandardSet) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *StandardSet) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
