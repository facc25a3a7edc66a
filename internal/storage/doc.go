// Package storage keeps track of the sessions a server has issued.
//
// # Overview
//
// A server mints session identifiers with a session.Tracker and records each
// one here so it can be looked up or closed later. Records live in memory
// only; a restarted server starts empty and reseeds its tracker from the
// clock, which is what keeps identifiers from being reused across restarts.
//
// # Core Interface
//
// Store: record keeping for issued sessions
//   - Get(id) - Retrieve a record by session identifier
//   - Put(record) - Store or replace a record
//   - Delete(id) - Remove a record (idempotent)
//   - List() - All identifiers, ascending
//   - Stats() - Record count and per-server breakdown
//
// # Implementations
//
// MemoryStore: map-backed storage guarded by sync.RWMutex
//   - Safe for concurrent use
//   - Returned values are copies
//
// # Error Handling
//
// ErrSessionNotFound: no record for the identifier
//   - Returned by Get()
//   - Delete() of a missing identifier is not an error
//
// Example:
//
//	store := storage.NewMemoryStore()
//	id := tracker.Next()
//	_ = store.Put(storage.Record{ID: id, ServerID: 1, CreatedAt: time.Now()})
//	rec, err := store.Get(id)
//	if errors.Is(err, storage.ErrSessionNotFound) {
//	    // unknown session
//	}
package storage
