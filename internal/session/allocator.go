package session

import (
	"errors"
	"fmt"
)

const (
	// MinServerID is the smallest legal server identifier.
	MinServerID = 1
	// MaxServerID is the largest legal server identifier.
	MaxServerID = 255

	serverShift = 56
	timeShift   = 16
	timeBits    = 40

	// the timestamp is shifted left by this much to drop its unused top bits
	timeDiscard = 24
)

// ErrInvalidServerID is returned when a server identifier falls outside
// [MinServerID, MaxServerID].
var ErrInvalidServerID = errors.New("invalid server id")

// Parts is an identifier split into its three fields.
type Parts struct {
	ServerID uint8  `json:"server_id" yaml:"server_id"`
	TimeBits int64  `json:"time_bits" yaml:"time_bits"`
	Counter  uint16 `json:"counter" yaml:"counter"`
}

// Mint returns the initial session identifier for serverID at now, which is
// milliseconds since the Unix epoch. The low 16 bits of the result are zero.
//
// Mint does not validate serverID: values outside [1,255] still produce a
// result, just not a meaningful one. Use ValidateServerID on configuration
// before it reaches the allocator.
func Mint(serverID, now int64, policy Policy) int64 {
	shifted := now << timeDiscard

	var next int64
	switch policy {
	case PolicyLegacy:
		// arithmetic shift: copies bit 63 into the server byte
		next = shifted >> (timeDiscard - timeShift)
	default:
		next = int64(uint64(shifted) >> (timeDiscard - timeShift))
	}
	return next | serverID<<serverShift
}

// ValidateServerID reports whether id is a legal server identifier.
func ValidateServerID(id int64) error {
	if id < MinServerID || id > MaxServerID {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidServerID, id, MinServerID, MaxServerID)
	}
	return nil
}

// ServerIDOf returns the server identifier stored in the top byte of id.
func ServerIDOf(id int64) uint8 {
	return uint8(uint64(id) >> serverShift)
}

// Decode splits id into its server, timestamp and counter fields.
func Decode(id int64) Parts {
	u := uint64(id)
	return Parts{
		ServerID: uint8(u >> serverShift),
		TimeBits: int64((u >> timeShift) & (1<<timeBits - 1)),
		Counter:  uint16(u),
	}
}
