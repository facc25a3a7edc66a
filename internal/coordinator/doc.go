// Package coordinator implements the control plane of a sessid ensemble: it
// owns the table of claimed server identifiers and watches the servers that
// hold them.
//
// # Overview
//
// The session id layout is collision free only if every live server has a
// distinct server id in [1,255]. Servers are configured independently, so
// nothing stops two of them from being given the same id by mistake. The
// coordinator catches that at startup: each sessiond registers its id before
// serving, and a second server claiming a held id is refused.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│         COORDINATOR                 │
//	├─────────────────────────────────────┤
//	│  ┌──────────────────────────────┐   │
//	│  │   Registry                   │   │
//	│  │   - serverID → address       │   │
//	│  │   - range and claim checks   │   │
//	│  └──────────────────────────────┘   │
//	│  ┌──────────────────────────────┐   │
//	│  │   HealthMonitor              │   │
//	│  │   - periodic /health probes  │   │
//	│  │   - releases dead claims     │   │
//	│  └──────────────────────────────┘   │
//	└─────────────────────────────────────┘
//
// # Core Components
//
// Registry: the server id claim table
//   - Register rejects ids outside [1,255] with session.ErrInvalidServerID
//   - Register rejects an id held by another address with ErrServerIDClaimed
//   - Re-registering the same id from the same address is a no-op
//   - List returns members sorted by server id
//
// HealthMonitor: failure detection
//   - Probes each member's /health endpoint every interval
//   - After 3 consecutive failures the member is marked unhealthy
//   - The onUnhealthy callback is typically wired to Registry.Deregister so
//     a replacement server may take over the id
//
// # Example
//
//	reg := coordinator.NewRegistry()
//	mon := coordinator.NewHealthMonitor(5 * time.Second)
//	mon.SetOnUnhealthy(func(id int) { reg.Deregister(id) })
//	go mon.Start(ctx, reg.List)
//
//	err := reg.Register(cluster.ServerInfo{ServerID: 1, Addr: "http://10.0.0.1:8081"})
//	if errors.Is(err, coordinator.ErrServerIDClaimed) {
//	    // misconfigured ensemble
//	}
//
// # Thread Safety
//
// Registry and HealthMonitor are safe for concurrent use. Returned slices
// and structs are copies.
package coordinator
