package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShannonEmpty(t *testing.T) {
	assert.Zero(t, Shannon(""))
}

func TestShannonUniform(t *testing.T) {
	// Single repeated byte: zero entropy.
	assert.Zero(t, Shannon("aaaaaaaa"))
}

func TestShannonTwoSymbols(t *testing.T) {
	// Equal counts of two distinct bytes: exactly 1 bit of entropy.
	assert.InDelta(t, 1.0, Shannon("abab"), 0.001)
}

func TestShannonHighForRandomLooking(t *testing.T) {
	low := Shannon("aaaaaaaaaaaaaaaaaaaa")
	high := Shannon("x7q2pz9mwv3ktalrbndf")
	assert.Greater(t, high, low)
}
