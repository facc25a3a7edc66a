// Package cluster defines the messages exchanged between sessiond servers,
// the coordinator and the sessionctl client, plus the small JSON-over-HTTP
// helpers they use to talk to each other.
//
// # Topology
//
//	              ┌──────────────┐
//	              │ Coordinator  │
//	              │ - Registry   │
//	              │ - Health Mon │
//	              └──────┬───────┘
//	                     │
//	      ┌──────────────┼──────────────┐
//	┌─────▼─────┐  ┌─────▼─────┐  ┌─────▼─────┐
//	│ sessiond  │  │ sessiond  │  │ sessiond  │
//	│ server 1  │  │ server 2  │  │ server 3  │
//	└───────────┘  └───────────┘  └───────────┘
//
// Servers never talk to each other while minting. The coordinator only
// guarantees that no two live servers claim the same server id, which is
// the precondition for the session id layout to be collision free.
//
// # HTTP helpers
//
// PostJSON and GetJSON share a client with a 5 second timeout. Non-2xx
// responses are returned as *HTTPError so callers can branch on the status:
//
//	err := cluster.PostJSON(ctx, coord+"/register", req, nil)
//	var herr *cluster.HTTPError
//	if errors.As(err, &herr) && herr.StatusCode == http.StatusConflict {
//	    // server id already claimed
//	}
package cluster
