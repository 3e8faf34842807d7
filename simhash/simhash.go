// Package simhash fingerprints rendered page text so two captures of the same
// screen can be compared without storing either of them.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// DefaultThreshold is the Hamming distance at or below which two page
// fingerprints are treated as the same screen.
const DefaultThreshold = 3

// Fingerprint computes a 64-bit SimHash of the given text.
// Words are lower-cased and hashed with FNV-64a; each word votes on every bit.
func Fingerprint(text string) uint64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	var votes [64]int
	h := fnv.New64a()
	for _, word := range words {
		h.Reset()
		h.Write([]byte(word))
		sum := h.Sum64()

		for i := range votes {
			if sum&(1<<uint(i)) != 0 {
				votes[i]++
			} else {
				votes[i]--
			}
		}
	}

	var fp uint64
	for i, v := range votes {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two fingerprints are within threshold bits.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}
