package storage

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/dreamware/sessid/internal/session"
)

// ErrSessionNotFound is returned when no record exists for a session id
var ErrSessionNotFound = errors.New("session not found")

// Record describes one issued session
type Record struct {
	CreatedAt time.Time      `json:"created_at"`
	ID        int64          `json:"id"`
	ServerID  int64          `json:"server_id"`
	Policy    session.Policy `json:"policy"`
}

// Store defines the interface for session record storage
// All implementations must be thread-safe for concurrent access
type Store interface {
	// Get retrieves a record by session id
	// Returns ErrSessionNotFound if the id is unknown
	Get(id int64) (Record, error)

	// Put stores a record under its ID
	// Overwrites any existing record for the same ID
	Put(rec Record) error

	// Delete removes a record
	// No error if the id doesn't exist
	Delete(id int64) error

	// List returns all stored session ids in ascending order
	List() []int64

	// Stats returns storage statistics
	Stats() StoreStats
}

// StoreStats contains statistics about the store
type StoreStats struct {
	PerServer map[int64]int `json:"per_server"` // Records per issuing server
	Sessions  int           `json:"sessions"`   // Number of records
}

// MemoryStore implements Store with in-memory storage
// Uses sync.RWMutex for thread-safe concurrent access
type MemoryStore struct {
	data map[int64]Record // Session id -> record
	mu   sync.RWMutex     // Protects concurrent access
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[int64]Record),
	}
}

// Get retrieves a record by session id
func (m *MemoryStore) Get(id int64) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.data[id]
	if !exists {
		return Record{}, ErrSessionNotFound
	}
	return rec, nil
}

// Put stores a record keyed by rec.ID
func (m *MemoryStore) Put(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[rec.ID] = rec
	return nil
}

// Delete removes a record
// No error if the id doesn't exist (idempotent)
func (m *MemoryStore) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, id)
	return nil
}

// List returns all session ids sorted ascending
func (m *MemoryStore) List() []int64 {
	m.mu.RLock()
	ids := make([]int64, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Stats returns storage statistics
func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	perServer := make(map[int64]int)
	for _, rec := range m.data {
		perServer[rec.ServerID]++
	}

	return StoreStats{
		Sessions:  len(m.data),
		PerServer: perServer,
	}
}
