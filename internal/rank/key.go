package rank

import (
	"cmp"
	"errors"
	"fmt"
)

// Length is the fixed width of every rank key.
const Length = 12

// MaxValue is the largest value that fits in Length base-36 digits (36^12 - 1).
const MaxValue uint64 = 4738381338321616895

var (
	// ErrInvalidLength is returned when a rank string is not exactly Length
	// characters, or a value cannot be written in Length digits.
	ErrInvalidLength = errors.New("invalid rank length")
	// ErrInvalidRank is returned when a rank string of the right length does
	// not decode. The decode error is wrapped alongside it.
	ErrInvalidRank = errors.New("invalid rank")
)

// Key is an immutable, validated rank. Keys compare by their decoded value,
// which for lowercase keys agrees with plain string comparison.
type Key struct {
	text  string
	value uint64
}

// Parse validates s as a rank key.
func Parse(s string) (Key, error) {
	if len(s) != Length {
		return Key{}, fmt.Errorf("%w: got %d characters, want %d", ErrInvalidLength, len(s), Length)
	}
	v, err := Decode(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %w", ErrInvalidRank, err)
	}
	return Key{text: s, value: v}, nil
}

// MustParse is Parse that panics on error. Intended for tests and constants.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// FromValue builds the canonical zero-padded key for v.
func FromValue(v uint64) (Key, error) {
	if v > MaxValue {
		return Key{}, fmt.Errorf("%w: value %d needs more than %d digits", ErrInvalidLength, v, Length)
	}
	return Key{text: EncodePadded(v, Length), value: v}, nil
}

// Next returns the key step positions after k.
func (k Key) Next(step uint64) (Key, error) {
	if step > MaxValue-k.value {
		return Key{}, fmt.Errorf("rank: next after %s by %d: %w", k.text, step, ErrOverflow)
	}
	return FromValue(k.value + step)
}

// String returns the key text exactly as it was parsed.
func (k Key) String() string { return k.text }

// Value returns the decoded magnitude.
func (k Key) Value() uint64 { return k.value }

// IsZero reports whether k is the zero Key (never produced by Parse or FromValue).
func (k Key) IsZero() bool { return k.text == "" }

// Compare returns -1, 0 or +1 ordering k against other by value.
func (k Key) Compare(other Key) int { return cmp.Compare(k.value, other.value) }

// Less reports whether k orders before other.
func (k Key) Less(other Key) bool { return k.value < other.value }

// Equal reports whether both keys hold the same value. "00000000000A" and
// "00000000000a" are equal.
func (k Key) Equal(other Key) bool { return k.value == other.value }

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.text), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
