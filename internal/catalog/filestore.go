package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/gearindex/marketpulse/internal/model"
)

// FileStore keeps the catalog in a single JSON file, loaded at startup
// and rewritten after every mutation. Suited to single-process
// deployments and tests.
type FileStore struct {
	path       string
	entries    map[string]*model.CatalogEntry
	historyCap int
	mu         sync.RWMutex
}

// NewFileStore loads the catalog file at path, starting empty if the
// file is missing or corrupt.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:       path,
		entries:    make(map[string]*model.CatalogEntry),
		historyCap: DefaultHistoryCap,
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &s.entries); err != nil {
				// Ignore corrupt file, start fresh
				s.entries = make(map[string]*model.CatalogEntry)
			}
		}
	}

	return s, nil
}

// SetHistoryCap overrides the default per-entry history bound.
func (s *FileStore) SetHistoryCap(n int) {
	s.mu.Lock()
	s.historyCap = n
	s.mu.Unlock()
}

func (s *FileStore) FindByID(ctx context.Context, id string) (*model.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneEntry(entry)
	return &cp, nil
}

// Insert adds a new entry, minting an id when none is set, and returns
// the stored id. Used by seeding and tests; the pricing engine itself
// never creates entries.
func (s *FileStore) Insert(ctx context.Context, entry *model.CatalogEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	s.mu.Lock()
	cp := cloneEntry(entry)
	s.entries[entry.ID] = &cp
	s.mu.Unlock()

	if err := s.save(); err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (s *FileStore) AtomicUpdate(ctx context.Context, id string, update Update) error {
	if update.IsZero() {
		return nil
	}

	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	applyUpdate(entry, update, s.historyCap)
	s.mu.Unlock()

	return s.save()
}

// save rewrites the catalog file. Marshalling happens under a read
// lock so concurrent updates cannot tear the serialized form.
func (s *FileStore) save() error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create catalog dir: %w", err)
		}
	}

	s.mu.RLock()
	data, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	return os.WriteFile(s.path, data, 0644)
}

// cloneEntry returns a deep enough copy that callers cannot mutate
// stored state through returned pointers.
func cloneEntry(entry *model.CatalogEntry) model.CatalogEntry {
	cp := *entry
	if entry.MarketValue.Current != nil {
		cur := *entry.MarketValue.Current
		cp.MarketValue.Current = &cur
	}
	if entry.MarketValue.History != nil {
		cp.MarketValue.History = append([]model.HistoryPoint(nil), entry.MarketValue.History...)
	}
	if entry.Specs != nil {
		cp.Specs = append([]model.Spec(nil), entry.Specs...)
	}
	return cp
}
