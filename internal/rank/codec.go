// Package rank implements the fixed-width base-36 rank keys that order
// siblings in an outline.
package rank

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	base   = 36
	digits = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var (
	// ErrEmpty is returned by Decode for blank input.
	ErrEmpty = errors.New("rank: empty input")
	// ErrOverflow is returned when a value does not fit in 64 bits.
	ErrOverflow = errors.New("rank: value overflows uint64")
)

// InvalidCharError reports a character outside 0-9, a-z and A-Z.
type InvalidCharError struct {
	Char rune
}

func (e *InvalidCharError) Error() string {
	return fmt.Sprintf("rank: invalid base-36 character %q", e.Char)
}

// Encode returns the minimal lowercase base-36 form of v. Zero encodes to "0".
func Encode(v uint64) string {
	if v == 0 {
		return "0"
	}
	// 13 digits cover math.MaxUint64.
	var buf [13]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v%base]
		v /= base
	}
	return string(buf[i:])
}

// EncodePadded is Encode left-padded with '0' to width characters.
// An encoding already at least width long is returned unchanged.
func EncodePadded(v uint64, width int) string {
	s := Encode(v)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// Decode parses a base-36 string, most significant digit first.
// Surrounding whitespace is ignored and letters are case-insensitive.
func Decode(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmpty
	}

	var acc uint64
	for _, ch := range s {
		d, ok := digitValue(ch)
		if !ok {
			return 0, &InvalidCharError{Char: ch}
		}
		if acc > math.MaxUint64/base {
			return 0, ErrOverflow
		}
		acc *= base
		if acc > math.MaxUint64-d {
			return 0, ErrOverflow
		}
		acc += d
	}
	return acc, nil
}

func digitValue(ch rune) (uint64, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return uint64(ch - '0'), true
	case ch >= 'a' && ch <= 'z':
		return uint64(ch-'a') + 10, true
	case ch >= 'A' && ch <= 'Z':
		return uint64(ch-'A') + 10, true
	default:
		return 0, false
	}
}
