package state

import "sync"

// #region mem-store
// MemStore is an in-process blob store for tests and ephemeral runs.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// SaveBlob stores a copy of data.
func (m *MemStore) SaveBlob(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte{}, data...)
	return nil
}

// SaveBlobs stores copies of every blob under one lock.
func (m *MemStore) SaveBlobs(blobs map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, data := range blobs {
		m.blobs[k] = append([]byte{}, data...)
	}
	return nil
}

// LoadBlob returns a copy of the stored data, or nil, nil.
func (m *MemStore) LoadBlob(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, v...), nil
}

// #endregion mem-store
