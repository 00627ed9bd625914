package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor_Digits(t *testing.T) {
	// The digit row is contiguous in the kernel's key space except that
	// KEY_0 sits after KEY_9.
	expected := map[byte]uint16{
		'0': 11, '1': 2, '2': 3, '3': 4, '4': 5,
		'5': 6, '6': 7, '7': 8, '8': 9, '9': 10,
	}
	for b, want := range expected {
		code, ok := KeyFor(b)
		require.True(t, ok, "byte %q must map", b)
		assert.Equal(t, want, code, "byte %q", b)
	}
}

func TestKeyFor_RejectsNonDigits(t *testing.T) {
	for _, b := range []byte{0x00, '/', ':', 'a', 'Z', ' ', '\n', 0xFF} {
		_, ok := KeyFor(b)
		assert.False(t, ok, "byte %#x must not map", b)
	}
}

func TestEmittable(t *testing.T) {
	keys := Emittable()
	require.Len(t, keys, 11)
	assert.Equal(t, KeyEnter, keys[len(keys)-1])
	seen := map[uint16]bool{}
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key code %d", k)
		seen[k] = true
	}
}
