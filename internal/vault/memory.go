package vault

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"flightres/internal/fr"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// Useful for tests. This implementation is safe for concurrent use.
type MemoryVault struct {
	name      string
	snapshots map[string][]byte // snapshot id -> bytes
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string][]byte),
	}
}

// PutSnapshot stores a snapshot, replacing any snapshot with the same id.
func (m *MemoryVault) PutSnapshot(id string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[id] = data
	return nil
}

// GetSnapshot writes the snapshot stored under id to w.
func (m *MemoryVault) GetSnapshot(id string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[id]
	if !ok {
		return fmt.Errorf("snapshot %s: %w", id, fr.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns stored ids in ascending order.
func (m *MemoryVault) ListSnapshots() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ fr.Vault = (*MemoryVault)(nil)
