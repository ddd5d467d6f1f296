package rank

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "0"},
		{9, "9"},
		{10, "a"},
		{35, "z"},
		{36, "10"},
		{100, "2s"},
		{1295, "zz"},
		{math.MaxUint64, "3w5e11264sgsf"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Encode(tc.in), "Encode(%d)", tc.in)
	}
}

func TestEncodePadded(t *testing.T) {
	assert.Equal(t, "000000000000", EncodePadded(0, Length))
	assert.Equal(t, "00000000002s", EncodePadded(100, Length))
	assert.Equal(t, "zzzzzzzzzzzz", EncodePadded(MaxValue, Length))

	// Never truncates.
	assert.Equal(t, "2s", EncodePadded(100, 1))
	assert.Equal(t, "3w5e11264sgsf", EncodePadded(math.MaxUint64, Length))
}

func TestDecode_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 35, 36, 1295, 1296, 46655, 1 << 32, MaxValue - 1, MaxValue}
	for v := uint64(0); v < 5000; v++ {
		values = append(values, v*948_712_303_777)
	}
	for _, v := range values {
		got, err := Decode(EncodePadded(v, Length))
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got)
	}
}

func TestDecode_MaxUint64(t *testing.T) {
	got, err := Decode(Encode(math.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)
}

func TestEncodePadded_Monotonic(t *testing.T) {
	values := []uint64{0, 1, 9, 10, 35, 36, 37, 1295, 1296, 99999, 1 << 40, MaxValue / 2, MaxValue}
	for _, a := range values {
		for _, b := range values {
			ea, eb := EncodePadded(a, Length), EncodePadded(b, Length)
			assert.Equal(t, a < b, ea < eb, "a=%d (%s) b=%d (%s)", a, ea, b, eb)
		}
	}
}

func TestDecode_CaseInsensitive(t *testing.T) {
	lower, err := Decode("abcxyz")
	require.NoError(t, err)
	upper, err := Decode("ABCXYZ")
	require.NoError(t, err)
	mixed, err := Decode("aBcXyZ")
	require.NoError(t, err)

	assert.Equal(t, lower, upper)
	assert.Equal(t, lower, mixed)
	// Encoding never produces upper case.
	assert.Equal(t, "abcxyz", Encode(upper))
}

func TestDecode_TrimsWhitespace(t *testing.T) {
	got, err := Decode("  2s\n")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got)
}

func TestDecode_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := Decode(in)
		assert.ErrorIs(t, err, ErrEmpty, "input %q", in)
	}
}

func TestDecode_InvalidChar(t *testing.T) {
	_, err := Decode("12-4")
	require.Error(t, err)

	var ice *InvalidCharError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, '-', ice.Char)
	assert.Contains(t, err.Error(), `'-'`)
}

func TestDecode_Overflow(t *testing.T) {
	_, err := Decode(strings.Repeat("z", 13))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Decode(strings.Repeat("z", 40))
	assert.ErrorIs(t, err, ErrOverflow)

	// One past MaxUint64 fails at the add step.
	_, err = Decode("3w5e11264sgsg")
	assert.ErrorIs(t, err, ErrOverflow)
}
