// Package main implements the sessid coordinator, which holds the table of
// claimed server ids for an ensemble and releases claims of servers that stop
// answering health checks.
//
// Configuration (environment, optionally from a .env file):
//   - COORDINATOR_ADDR: Listen address (default: ":8080")
//   - HEALTH_INTERVAL: Health check interval as a Go duration (default: "5s")
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dreamware/sessid/internal/cluster"
	"github.com/dreamware/sessid/internal/coordinator"
	"github.com/dreamware/sessid/internal/session"
)

var logFatal = log.Fatalf

func main() {
	_ = godotenv.Load()

	addr := getenv("COORDINATOR_ADDR", ":8080")
	interval, err := time.ParseDuration(getenv("HEALTH_INTERVAL", "5s"))
	if err != nil {
		logFatal("HEALTH_INTERVAL: %v", err)
		return
	}

	srv := newServer()
	monitor := coordinator.NewHealthMonitor(interval)
	monitor.SetOnUnhealthy(srv.release)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("coordinator listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go monitor.Start(ctx, srv.registry.List)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cancel()
	monitor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	log.Println("coordinator stopped")
}

type server struct {
	registry *coordinator.Registry
}

func newServer() *server {
	return &server{registry: coordinator.NewRegistry()}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/servers", s.handleListServers)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleRegister claims a server id.
//
// Response:
//   - 204 No Content: claimed (or re-registered from the same address)
//   - 400 Bad Request: bad json, missing address or id outside [1,255]
//   - 409 Conflict: id held by another address
func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cluster.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	err := s.registry.Register(req.Server)
	switch {
	case err == nil:
		log.Printf("server %d registered from %s", req.Server.ServerID, req.Server.Addr)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, coordinator.ErrServerIDClaimed):
		log.Printf("rejected registration: %v", err)
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrInvalidServerID), errors.Is(err, coordinator.ErrMissingAddr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *server) handleListServers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cluster.ServerList{Servers: s.registry.List()})
}

// release frees the id of a server the health monitor gave up on.
func (s *server) release(serverID int) {
	if s.registry.Deregister(serverID) {
		log.Printf("released server id %d", serverID)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
