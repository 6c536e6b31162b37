package enrich

import (
	"context"
	"fmt"
	"sync"
)

// MockCollaborator serves canned enrichments keyed by "brand model".
type MockCollaborator struct {
	mu          sync.Mutex
	enrichments map[string]*Enrichment
	failWith    error
	available   bool
	calls       int
}

func NewMockCollaborator() *MockCollaborator {
	return &MockCollaborator{
		enrichments: make(map[string]*Enrichment),
		available:   true,
	}
}

func (m *MockCollaborator) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *MockCollaborator) SetAvailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = v
}

func (m *MockCollaborator) Seed(brand, model string, e *Enrichment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichments[brand+" "+model] = e
}

func (m *MockCollaborator) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MockCollaborator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockCollaborator) GetDeepEnrichment(ctx context.Context, brand, model string) (*Enrichment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	e, ok := m.enrichments[brand+" "+model]
	if !ok {
		return nil, fmt.Errorf("no enrichment for %s %s", brand, model)
	}
	return e, nil
}
