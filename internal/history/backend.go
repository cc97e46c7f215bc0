package history

import (
	"fmt"
	"sync"
)

// Backend is a namespaced durable key-value entry store
type Backend interface {
	// Get returns the value stored under key; ok is false when nothing is stored
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// StorageError represents errors reading or writing a backend entry
type StorageError struct {
	Op  string // "read", "write", "remove", "decode", "encode"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// MemoryBackend keeps entries in memory. FailWrites makes every Set and
// Remove fail, which is how tests simulate a full or read-only disk.
type MemoryBackend struct {
	mu         sync.Mutex
	entries    map[string]string
	FailWrites error
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]string)}
}

func (b *MemoryBackend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.entries[key]
	return v, ok, nil
}

func (b *MemoryBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWrites != nil {
		return b.FailWrites
	}
	b.entries[key] = value
	return nil
}

func (b *MemoryBackend) Remove(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWrites != nil {
		return b.FailWrites
	}
	delete(b.entries, key)
	return nil
}
