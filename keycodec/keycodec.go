// Package keycodec funnels every place that needs to compare or widen a
// 1-8 byte little-endian key through one helper, per the callback-driven
// polymorphism note: "all numeric decoding of keys should funnel through a
// helper that widens 1-8 byte keys into a 64-bit representation."
package keycodec

import "golang.org/x/exp/constraints"

// Widen reads the first keySize bytes of b as a little-endian unsigned
// integer and returns it as a uint64. Bytes beyond keySize are ignored.
func Widen(b []byte, keySize int) uint64 {
	var v uint64
	for i := 0; i < keySize; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// Put writes the low keySize bytes of v into b as little-endian.
func Put(b []byte, keySize int, v uint64) {
	for i := 0; i < keySize; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Compare returns -1, 0, or 1 comparing a and b as keySize-byte
// little-endian unsigned integers. This is the default comparator used when
// the caller does not supply one, per the config's CompareKey callback.
func Compare(a, b []byte, keySize int) int {
	av, bv := Widen(a, keySize), Widen(b, keySize)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// FromUint widens any sized unsigned integer type into the uint64
// representation keys are compared in, for callers constructing keys from
// typed counters instead of raw bytes.
func FromUint[T constraints.Unsigned](v T) uint64 {
	return uint64(v)
}
