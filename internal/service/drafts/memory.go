package drafts

import "sync"

// MemoryBuffer is a Buffer that lives only as long as the process.
type MemoryBuffer struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBuffer returns an empty MemoryBuffer.
func NewMemoryBuffer() *MemoryBuffer {
	return &MemoryBuffer{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (b *MemoryBuffer) Get(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.values[key]
	return value, ok, nil
}

// Set stores value under key.
func (b *MemoryBuffer) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}
