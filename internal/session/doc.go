// Package session mints the 64-bit client session identifiers handed out by a
// coordination server, and provides the tooling used to prove that two servers
// in the same ensemble can never mint the same identifier.
//
// # Overview
//
// Every server in an ensemble assigns session identifiers on its own, with no
// communication between servers at allocation time. Uniqueness comes entirely
// from the bit layout: the server identifier owns the top byte and the clock
// fills the bytes below it.
//
// # Layout
//
//	 63      56 55                                      16 15            0
//	┌──────────┬──────────────────────────────────────────┬───────────────┐
//	│ serverID │        timestamp bits 39..0 (40 bits)     │    counter    │
//	└──────────┴──────────────────────────────────────────┴───────────────┘
//
// The counter is zero when the identifier is minted. A Tracker increments the
// whole value for each subsequent session on the same server.
//
// # Policies
//
// Two shift strategies are kept side by side:
//
//   - PolicyFixed shifts the timestamp right with zero fill, so the top byte
//     is always free for the server identifier.
//   - PolicyLegacy shifts with sign extension. Whenever bit 39 of the
//     timestamp is set (April 2022 through September 2039) the sign bit
//     floods the top byte and every server mints the same value.
//
// PolicyLegacy exists only so the defect stays reproducible in regression
// runs; servers should always mint with PolicyFixed.
//
// # Verification
//
// Verify mints an identifier for each server id in [1,255] at a single
// instant and reports every pair of servers that produced the same value:
//
//	res := session.Verify(session.PolicyFixed, time.Now().UnixMilli())
//	if res.Collided {
//	    res.WriteReport(os.Stderr)
//	}
//
// VerifyAll runs several independent verifications concurrently.
//
// # Concurrency
//
// Mint, Decode, FormatBinary and Verify are pure and safe for concurrent use.
// Tracker.Next is safe for concurrent use through atomic operations.
package session
