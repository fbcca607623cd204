package math

import (
	"math/rand"
)

// Maximum calculates the maximum value among two integers
func Maximum(a int, b int) int {
	if a > b {
		return a
	}
	return b
}

//Minimum calculates the minimum value among two integers
func Minimum(a int, b int) int {
	if a > b {
		return b
	}
	return a
}

//Adjustment contains rule of three for calculating an integer given another integer representing a percentage
func Adjustment(a int, b int) int {
	return (a * b / 100)
}

// SubsetSize derives how many of total items a percentage selects, never less than one
// as long as there is something to select
func SubsetSize(total, percentage int) int {
	if total <= 0 {
		return 0
	}
	return Minimum(total, Maximum(1, Adjustment(total, percentage)))
}

// Sample picks k distinct indices out of [0, n) uniformly at random, in random order
func Sample(rng *rand.Rand, n, k int) []int {
	if k <= 0 || n <= 0 {
		return nil
	}
	k = Minimum(k, n)
	return rng.Perm(n)[:k]
}

// Between draws an integer uniformly from the closed range [lo, hi]
func Between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}
