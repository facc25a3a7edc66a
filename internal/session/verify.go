package session

import (
	"fmt"
	"io"
	"sync"
)

// Collision records two server identifiers that minted the same session
// identifier. First is the server seen earlier in the scan.
type Collision struct {
	First     int64 `json:"first" yaml:"first"`
	Second    int64 `json:"second" yaml:"second"`
	SessionID int64 `json:"session_id" yaml:"session_id"`
}

// Entry is one minted value from a verification run.
type Entry struct {
	ServerID  int64 `json:"server_id" yaml:"server_id"`
	SessionID int64 `json:"session_id" yaml:"session_id"`
}

// Result is the outcome of a single verification run.
type Result struct {
	Policy     Policy      `json:"policy" yaml:"policy"`
	Now        int64       `json:"now" yaml:"now"`
	Collided   bool        `json:"collided" yaml:"collided"`
	Collisions []Collision `json:"collisions" yaml:"collisions"`
	Entries    []Entry     `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Case is one (policy, timestamp) combination for VerifyAll.
type Case struct {
	Policy Policy
	Now    int64
}

// Verify mints an identifier for every server id from MinServerID to
// MaxServerID at now and reports each server whose identifier was already
// produced by an earlier one. The scan never stops early, so every affected
// pair is listed.
func Verify(policy Policy, now int64) Result {
	res := Result{
		Policy:     policy,
		Now:        now,
		Collisions: []Collision{},
		Entries:    make([]Entry, 0, MaxServerID-MinServerID+1),
	}

	firstSeen := make(map[int64]int64, MaxServerID)
	for id := int64(MinServerID); id <= MaxServerID; id++ {
		sid := Mint(id, now, policy)
		res.Entries = append(res.Entries, Entry{ServerID: id, SessionID: sid})

		if prev, dup := firstSeen[sid]; dup {
			res.Collisions = append(res.Collisions, Collision{First: prev, Second: id, SessionID: sid})
			continue
		}
		firstSeen[sid] = id
	}

	res.Collided = len(res.Collisions) > 0
	return res
}

// VerifyAll runs Verify for each case on its own goroutine. Results are
// returned in the same order as cases.
func VerifyAll(cases []Case) []Result {
	results := make([]Result, len(cases))

	var wg sync.WaitGroup
	for i, c := range cases {
		wg.Add(1)
		go func(i int, c Case) {
			defer wg.Done()
			results[i] = Verify(c.Policy, c.Now)
		}(i, c)
	}
	wg.Wait()

	return results
}

// WriteReport writes a human-readable dump of the run to w: one line per
// minted identifier in binary form, followed by one line per collision.
func (r Result) WriteReport(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "policy=%s now=%d\n%s\n", r.Policy, r.Now, FormatBinary(r.Now)); err != nil {
		return err
	}
	for _, e := range r.Entries {
		if _, err := fmt.Fprintf(w, "server id: %3d session id:%s\n", e.ServerID, FormatBinary(e.SessionID)); err != nil {
			return err
		}
	}
	for _, c := range r.Collisions {
		if _, err := fmt.Fprintf(w, "session id collision: server-1 = %d, server-2 = %d\n", c.First, c.Second); err != nil {
			return err
		}
	}
	status := "ok"
	if r.Collided {
		status = fmt.Sprintf("FAILED (%d collisions)", len(r.Collisions))
	}
	_, err := fmt.Fprintf(w, "result: %s\n", status)
	return err
}
