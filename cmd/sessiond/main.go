// Package main implements sessiond, the per-server session id service of a
// sessid ensemble.
//
// Each sessiond is configured with a server id in [1,255]. At startup it
// seeds a session.Tracker from the wall clock and from then on hands out
// session ids without talking to any other server.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                sessiond                 │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    /health          - Health check      │
//	│    /info            - Tracker state     │
//	│    /sessions        - Mint a session    │
//	│    /sessions/{id}   - Lookup / close    │
//	│    /verify          - Collision check   │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    Tracker       - Seeded id counter    │
//	│    Store         - Issued sessions      │
//	│    Registration  - Coordinator claim    │
//	└─────────────────────────────────────────┘
//
// Configuration (environment, optionally from a .env file):
//   - SERVER_ID: Server id in [1,255] (required)
//   - SESSIOND_LISTEN: Listen address (default: ":8081")
//   - SESSIOND_ADDR: Public address for the coordinator (default: "http://127.0.0.1:8081")
//   - SESSION_POLICY: "fixed" or "legacy" (default: "fixed")
//   - COORDINATOR_ADDR: Coordinator URL (optional; registration is skipped when empty)
//
// Example usage:
//
//	SERVER_ID=1 COORDINATOR_ADDR=http://localhost:8080 ./sessiond
//	curl -X POST localhost:8081/sessions
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dreamware/sessid/internal/cluster"
	"github.com/dreamware/sessid/internal/session"
	"github.com/dreamware/sessid/internal/storage"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

// registerAttempts and registerDelay bound the coordinator registration retry loop.
var (
	registerAttempts = 10
	registerDelay    = 400 * time.Millisecond
)

type config struct {
	listen      string
	public      string
	coordinator string
	serverID    int64
	policy      session.Policy
}

// loadConfig reads the environment. An invalid SERVER_ID or SESSION_POLICY
// is a configuration error and must stop the server before it mints.
func loadConfig() (config, error) {
	cfg := config{
		listen:      getenv("SESSIOND_LISTEN", ":8081"),
		public:      getenv("SESSIOND_ADDR", "http://127.0.0.1:8081"),
		coordinator: getenv("COORDINATOR_ADDR", ""),
	}

	raw := getenv("SERVER_ID", "")
	if raw == "" {
		return cfg, errors.New("SERVER_ID is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("SERVER_ID %q: %w", raw, err)
	}
	if err := session.ValidateServerID(id); err != nil {
		return cfg, fmt.Errorf("SERVER_ID: %w", err)
	}
	cfg.serverID = id

	policy, err := session.ParsePolicy(getenv("SESSION_POLICY", "fixed"))
	if err != nil {
		return cfg, fmt.Errorf("SESSION_POLICY: %w", err)
	}
	cfg.policy = policy

	return cfg, nil
}

// main loads configuration, seeds the tracker, registers with the
// coordinator when one is configured, and serves until SIGINT/SIGTERM.
//
// Exit codes:
//   - 0: Normal shutdown via signal
//   - 1: Invalid configuration
//   - 1: Server id already claimed, or coordinator unreachable
//   - 1: Failed to start HTTP server
func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		logFatal("config: %v", err)
		return
	}

	if cfg.policy == session.PolicyLegacy {
		log.Printf("sessiond[%d] WARNING: legacy policy collides across servers after 2022-04", cfg.serverID)
	}

	tracker, err := session.NewTracker(cfg.serverID, time.Now().UnixMilli(), cfg.policy)
	if err != nil {
		logFatal("tracker: %v", err)
		return
	}
	srv := newServer(tracker, storage.NewMemoryStore())
	log.Printf("sessiond[%d] seeded at %s (policy %s)", cfg.serverID, session.FormatBinary(tracker.Seed()), cfg.policy)

	s := &http.Server{
		Addr:              cfg.listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("sessiond[%d] listening on %s (public %s)", cfg.serverID, cfg.listen, cfg.public)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	if cfg.coordinator != "" {
		info := cluster.ServerInfo{ServerID: int(cfg.serverID), Addr: cfg.public}
		if err := register(context.Background(), cfg.coordinator, info); err != nil {
			logFatal("failed to register with coordinator: %v", err)
			return
		}
	} else {
		log.Printf("sessiond[%d] COORDINATOR_ADDR not set, skipping registration", cfg.serverID)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("sessiond[%d] stopped after issuing %d sessions", cfg.serverID, tracker.Issued())
}

// register claims info.ServerID at the coordinator, retrying transient
// failures to ride out coordinator startup. A 409 means another server holds
// the id; that is a configuration error and is returned without retrying.
func register(ctx context.Context, coord string, info cluster.ServerInfo) error {
	body := cluster.RegisterRequest{Server: info}
	var lastErr error

	for i := 0; i < registerAttempts; i++ {
		lastErr = cluster.PostJSON(ctx, coord+"/register", body, nil)
		if lastErr == nil {
			log.Printf("sessiond[%d] registered with coordinator @ %s", info.ServerID, coord)
			return nil
		}

		var herr *cluster.HTTPError
		if errors.As(lastErr, &herr) && (herr.StatusCode == http.StatusConflict || herr.StatusCode == http.StatusBadRequest) {
			return lastErr
		}

		log.Printf("register retry %d: %v", i+1, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(registerDelay):
		}
	}
	return lastErr
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
