package documents

import (
	"sync"

	"flightres/internal/fr"
)

// MemoryDocuments keeps documents in memory. Useful for tests and for
// running the server without durable state.
// This implementation is safe for concurrent use.
type MemoryDocuments struct {
	mu   sync.RWMutex
	docs map[string][]byte

	// FailWrites makes every WriteDocument call return this error. Tests only.
	FailWrites error
}

// NewMemoryDocuments creates an empty in-memory document store.
func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{docs: make(map[string][]byte)}
}

func (m *MemoryDocuments) ReadDocument(name string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[name]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (m *MemoryDocuments) WriteDocument(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.docs[name] = stored
	return nil
}

func (m *MemoryDocuments) DeleteDocument(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, name)
	return nil
}

func (m *MemoryDocuments) Location(name string) string {
	return "memory:" + name
}

func (m *MemoryDocuments) Close() error { return nil }

var _ fr.DocumentStore = (*MemoryDocuments)(nil)
