// Package coordinator implements the control plane of a sessid ensemble.
// This file implements health monitoring for registered servers.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/sessid/internal/cluster"
)

// Health status values reported by ServerHealth.Status.
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// ServerHealth tracks the health of a single ensemble member.
// Thread-safe: Protected by HealthMonitor's mutex when accessed.
type ServerHealth struct {
	LastCheck        time.Time // Timestamp of the last health check attempt
	LastHealthy      time.Time // Timestamp of the last successful health check
	Addr             string    // Address that was probed
	Status           string    // StatusHealthy, StatusUnhealthy or StatusUnknown
	ServerID         int       // Server id being tracked
	ConsecutiveFails int       // Number of consecutive failed health checks
}

// HealthMonitor periodically probes every registered server and reports the
// ones that stop answering, so their server id claims can be released.
// Thread-safe: All methods are safe for concurrent access.
type HealthMonitor struct {
	servers     map[int]*ServerHealth   // Current health status per server id
	httpClient  *http.Client            // HTTP client for health checks
	checkFunc   func(addr string) error // Function to perform health check
	onUnhealthy func(serverID int)      // Callback when a server becomes unhealthy
	ctx         context.Context         // Context for cancellation
	cancel      context.CancelFunc      // Cancel function for shutdown
	interval    time.Duration           // How often to check server health
	timeout     time.Duration           // HTTP timeout for health checks
	mu          sync.RWMutex            // Protects servers map
	wg          sync.WaitGroup          // Wait group for graceful shutdown
	maxFailures int                     // Failures before marking unhealthy
}

// NewHealthMonitor creates a health monitor that probes each server's
// /health endpoint every interval. Servers are marked unhealthy after 3
// consecutive failures.
//
// Example:
//
//	monitor := NewHealthMonitor(5 * time.Second)
//	go monitor.Start(ctx, registry.List)
func NewHealthMonitor(interval time.Duration) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &HealthMonitor{
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		servers:     make(map[int]*ServerHealth),
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetOnUnhealthy sets the callback invoked when a server becomes unhealthy.
// The callback runs on its own goroutine.
//
// Example:
//
//	monitor.SetOnUnhealthy(func(serverID int) {
//	    registry.Deregister(serverID)
//	})
func (h *HealthMonitor) SetOnUnhealthy(callback func(serverID int)) {
	h.onUnhealthy = callback
}

// SetCheckFunction overrides the default HTTP health check.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(addr string) error) {
	h.checkFunc = checkFunc
}

// Start runs the monitoring loop in the current goroutine until ctx or the
// monitor itself is cancelled. The provider is called on every tick to get
// the current membership.
func (h *HealthMonitor) Start(ctx context.Context, provider func() []cluster.ServerInfo) {
	h.wg.Add(1)
	defer h.wg.Done()

	if ctx == nil {
		ctx = h.ctx
	}
	if h.checkFunc == nil {
		h.checkFunc = h.defaultHealthCheck
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	log.Printf("health monitor started with interval %v", h.interval)

	h.checkAll(provider())

	for {
		select {
		case <-ticker.C:
			h.checkAll(provider())
		case <-ctx.Done():
			log.Println("health monitor stopping due to context cancellation")
			return
		case <-h.ctx.Done():
			log.Println("health monitor stopping due to internal cancellation")
			return
		}
	}
}

// Stop cancels the monitoring loop and waits for it to exit.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
	log.Println("health monitor stopped")
}

// checkAll probes every server and forgets servers that left the ensemble.
func (h *HealthMonitor) checkAll(servers []cluster.ServerInfo) {
	current := make(map[int]bool, len(servers))

	for _, s := range servers {
		current[s.ServerID] = true
		h.check(s)
	}

	h.mu.Lock()
	for id := range h.servers {
		if !current[id] {
			delete(h.servers, id)
			log.Printf("removed server %d from health monitoring", id)
		}
	}
	h.mu.Unlock()
}

// check probes one server and updates its record. A server that re-registers
// from a new address starts over with a fresh record.
func (h *HealthMonitor) check(s cluster.ServerInfo) {
	h.mu.Lock()
	health, exists := h.servers[s.ServerID]
	if !exists || health.Addr != s.Addr {
		health = &ServerHealth{
			ServerID:    s.ServerID,
			Addr:        s.Addr,
			Status:      StatusUnknown,
			LastCheck:   time.Now(),
			LastHealthy: time.Now(),
		}
		h.servers[s.ServerID] = health
	}
	h.mu.Unlock()

	err := h.checkFunc(s.Addr)

	h.mu.Lock()
	defer h.mu.Unlock()

	health.LastCheck = time.Now()

	if err != nil {
		health.ConsecutiveFails++
		log.Printf("health check failed for server %d (attempt %d/%d): %v",
			s.ServerID, health.ConsecutiveFails, h.maxFailures, err)

		if health.ConsecutiveFails >= h.maxFailures && health.Status != StatusUnhealthy {
			health.Status = StatusUnhealthy
			if h.onUnhealthy != nil {
				log.Printf("server %d marked unhealthy after %d failures", s.ServerID, health.ConsecutiveFails)
				go h.onUnhealthy(s.ServerID)
			}
		}
		return
	}

	if health.Status == StatusUnhealthy {
		log.Printf("server %d recovered", s.ServerID)
	}
	health.Status = StatusHealthy
	health.ConsecutiveFails = 0
	health.LastHealthy = time.Now()
}

// defaultHealthCheck performs GET {addr}/health and fails on anything but 200.
func (h *HealthMonitor) defaultHealthCheck(addr string) error {
	url := addr
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		url = fmt.Sprintf("http://%s", addr)
	}
	if !strings.HasSuffix(url, "/health") {
		url = strings.TrimRight(url, "/") + "/health"
	}

	resp, err := h.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// GetServerHealth returns a copy of the health record for serverID, or nil
// if the server is not being monitored.
func (h *HealthMonitor) GetServerHealth(serverID int) *ServerHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.servers[serverID]
	if !exists {
		return nil
	}
	cp := *health
	return &cp
}

// GetAllServerHealth returns copies of every health record keyed by server id.
func (h *HealthMonitor) GetAllServerHealth() map[int]*ServerHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[int]*ServerHealth, len(h.servers))
	for id, health := range h.servers {
		cp := *health
		result[id] = &cp
	}
	return result
}

// IsHealthy reports whether serverID is monitored and currently healthy.
func (h *HealthMonitor) IsHealthy(serverID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.servers[serverID]
	return exists && health.Status == StatusHealthy
}
