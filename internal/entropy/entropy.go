// Package entropy computes Shannon entropy over byte strings, used to flag
// DNS names/values that look algorithmically generated (DGA-style C2
// domains, tunneled TXT records). No third-party Go package available for
// import provides this, so it is a standard-library leaf (see DESIGN.md).
package entropy

import "math"

// Shannon returns the base-2 Shannon entropy of s's byte distribution, in
// bits per byte. The empty string has zero entropy.
func Shannon(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}

	n := float64(len(s))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
