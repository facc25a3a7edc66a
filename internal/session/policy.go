package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPolicy is returned by ParsePolicy for names it does not recognise.
var ErrUnknownPolicy = errors.New("unknown policy")

// Policy selects the shift strategy used to place the timestamp bits.
type Policy int

const (
	// PolicyFixed shifts right with zero fill. This is the only policy a
	// live server should use.
	PolicyFixed Policy = iota
	// PolicyLegacy shifts right with sign extension and collides once bit 39
	// of the timestamp is set. Kept for regression comparison.
	PolicyLegacy
)

// Policies lists every known policy in declaration order.
var Policies = []Policy{PolicyFixed, PolicyLegacy}

// String returns the lower-case name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyFixed:
		return "fixed"
	case PolicyLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler so policies render by name
// in JSON and YAML.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePolicy converts a policy name into a Policy. Matching ignores case
// and surrounding whitespace.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fixed":
		return PolicyFixed, nil
	case "legacy":
		return PolicyLegacy, nil
	default:
		return PolicyFixed, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
