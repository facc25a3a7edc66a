package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedBinary is returned by ParseBinary for input that is not 64
// binary digits.
var ErrMalformedBinary = errors.New("malformed binary identifier")

// FormatBinary renders v as 64 zero-padded binary digits in eight groups of
// eight. Each group is preceded by a single space:
//
//	FormatBinary(1) == " 00000000 00000000 ... 00000001"
func FormatBinary(v int64) string {
	digits := strconv.FormatUint(uint64(v), 2)

	var padded [64]byte
	for i := range padded {
		padded[i] = '0'
	}
	copy(padded[64-len(digits):], digits)

	var b strings.Builder
	b.Grow(72)
	for i := 0; i < 8; i++ {
		b.WriteByte(' ')
		b.Write(padded[i*8 : (i+1)*8])
	}
	return b.String()
}

// ParseBinary is the inverse of FormatBinary. Spaces anywhere in s are
// ignored; what remains must be exactly 64 binary digits.
func ParseBinary(s string) (int64, error) {
	digits := strings.ReplaceAll(s, " ", "")
	if len(digits) != 64 {
		return 0, fmt.Errorf("%w: want 64 digits, got %d", ErrMalformedBinary, len(digits))
	}
	u, err := strconv.ParseUint(digits, 2, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedBinary, err)
	}
	return int64(u), nil
}

// ParseID reads a session identifier written as a signed decimal, as
// 0x-prefixed hex of the raw 64 bits, or as 64 binary digits in the
// FormatBinary layout.
func ParseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		u, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("parse hex session id %q: %w", s, err)
		}
		return int64(u), nil
	case len(strings.ReplaceAll(s, " ", "")) == 64:
		return ParseBinary(s)
	default:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse session id %q: %w", s, err)
		}
		return v, nil
	}
}
