package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dreamware/sessid/internal/cluster"
	"github.com/dreamware/sessid/internal/session"
	"github.com/dreamware/sessid/internal/storage"
)

// server holds the runtime state of one sessiond instance.
//
// Concurrency model:
//   - tracker.Next is atomic, so concurrent POST /sessions never share an id
//   - store handles its own locking
type server struct {
	tracker *session.Tracker
	store   storage.Store
	now     func() time.Time
}

func newServer(tracker *session.Tracker, store storage.Store) *server {
	return &server{
		tracker: tracker,
		store:   store,
		now:     time.Now,
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /info", s.handleInfo)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /verify", s.handleVerify)
	return mux
}

// handleInfo reports the tracker state.
//
// Endpoint: GET /info
func (s *server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cluster.InfoResponse{
		ServerID: s.tracker.ServerID(),
		Policy:   s.tracker.Policy(),
		Seed:     s.tracker.Seed(),
		Issued:   s.tracker.Issued(),
		Active:   s.store.Stats().Sessions,
	})
}

// handleCreateSession issues the next session id and records it.
//
// Endpoint: POST /sessions
//
// Response:
//   - 201 Created: cluster.SessionResponse for the new id
//   - 500 Internal Server Error: the record could not be stored
func (s *server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id := s.tracker.Next()
	rec := storage.Record{
		ID:        id,
		ServerID:  s.tracker.ServerID(),
		Policy:    s.tracker.Policy(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Put(rec); err != nil {
		log.Printf("store session %d: %v", id, err)
		http.Error(w, "failed to store session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, cluster.NewSessionResponse(rec.ID, rec.Policy, rec.CreatedAt))
}

// handleListSessions returns the ids of all open sessions, ascending.
//
// Endpoint: GET /sessions
func (s *server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Sessions []int64 `json:"sessions"`
	}{Sessions: s.store.List()})
}

// handleGetSession looks up an open session.
//
// Endpoint: GET /sessions/{id}
//
// The id may be decimal, 0x hex or binary (see session.ParseID).
//
// Response:
//   - 200 OK: cluster.SessionResponse
//   - 400 Bad Request: unparseable id
//   - 404 Not Found: no open session with that id
func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := session.ParseID(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.store.Get(id)
	if errors.Is(err, storage.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cluster.NewSessionResponse(rec.ID, rec.Policy, rec.CreatedAt))
}

// handleDeleteSession closes a session. Closing an unknown id succeeds.
//
// Endpoint: DELETE /sessions/{id}
func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := session.ParseID(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.Delete(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVerify runs the collision harness.
//
// Endpoint: GET /verify?policy=fixed|legacy&now=<ms>&entries=true
//
// Defaults: the tracker's policy and the current time. Entries are omitted
// unless entries=true.
func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	policy := s.tracker.Policy()
	if p := q.Get("policy"); p != "" {
		parsed, err := session.ParsePolicy(p)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		policy = parsed
	}

	now := s.now().UnixMilli()
	if n := q.Get("now"); n != "" {
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			http.Error(w, "now must be milliseconds since the epoch", http.StatusBadRequest)
			return
		}
		now = parsed
	}

	res := session.Verify(policy, now)
	if q.Get("entries") != "true" {
		res.Entries = nil
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
