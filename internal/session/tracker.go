package session

import "sync/atomic"

// Tracker hands out session identifiers for a single server. It is seeded
// with Mint at construction and increments by one for each session.
type Tracker struct {
	next     atomic.Int64
	seed     int64
	serverID int64
	policy   Policy
}

// NewTracker validates serverID and seeds a Tracker with Mint(serverID, now,
// policy). now is normally the wall clock in milliseconds at server start.
func NewTracker(serverID, now int64, policy Policy) (*Tracker, error) {
	if err := ValidateServerID(serverID); err != nil {
		return nil, err
	}
	seed := Mint(serverID, now, policy)
	t := &Tracker{seed: seed, serverID: serverID, policy: policy}
	t.next.Store(seed)
	return t, nil
}

// Next returns the next unused identifier. The first call returns the seed.
func (t *Tracker) Next() int64 {
	return t.next.Add(1) - 1
}

// Issued returns how many identifiers Next has handed out.
func (t *Tracker) Issued() int64 {
	return t.next.Load() - t.seed
}

// Seed returns the identifier the tracker started from.
func (t *Tracker) Seed() int64 { return t.seed }

// ServerID returns the server identifier the tracker mints for.
func (t *Tracker) ServerID() int64 { return t.serverID }

// Policy returns the policy used to mint the seed.
func (t *Tracker) Policy() Policy { return t.policy }
