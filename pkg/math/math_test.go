package math

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaximum(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int
		expected int
	}{
		{"First number is greater", 10, 5, 10},
		{"Second number is greater", 3, 8, 8},
		{"Numbers are equal", 5, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Maximum(tt.a, tt.b); got != tt.expected {
				t.Errorf("Maximum() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSubsetSize(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		percentage int
		expected   int
	}{
		{"half of 100 files", 100, 50, 50},
		{"quarter of 100 files", 100, 25, 25},
		{"quarter of 3 files rounds up to one", 3, 25, 1},
		{"nothing to select", 0, 50, 0},
		{"full corpus", 7, 100, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubsetSize(tt.total, tt.percentage); got != tt.expected {
				t.Errorf("SubsetSize() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSample(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		got := Sample(rng, 7, 2)
		assert.Len(t, got, 2)
		assert.NotEqual(t, got[0], got[1], "sampled indices must be distinct")
		for _, idx := range got {
			assert.True(t, idx >= 0 && idx < 7, "index %d out of range", idx)
		}
	}

	all := Sample(rng, 5, 10)
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, all)
	assert.Nil(t, Sample(rng, 5, 0))
}

func TestBetween(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		v := Between(rng, 1, 2)
		assert.True(t, v == 1 || v == 2, "value %d out of range", v)
		seen[v] = true
	}
	assert.Len(t, seen, 2)
	assert.Equal(t, 3, Between(rng, 3, 3))
}
