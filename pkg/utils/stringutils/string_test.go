package stringutils

import (
	"math/rand"
	"strings"
	"testing"
)

func TestRandStringBytesMask(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		seed     int64
		expected string
	}{
		{
			name:     "6-char string from seed 1234",
			n:        6,
			seed:     1234,
			expected: "ts9ng0",
		},
		{
			name:     "empty string with n = 0",
			n:        0,
			seed:     999,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RandStringBytesMask(tt.n, rand.NewSource(tt.seed))
			if got != tt.expected {
				t.Errorf("RandStringBytesMask(%d, %d) = %q; want %q", tt.n, tt.seed, got, tt.expected)
			}
		})
	}
}

func TestGetRunID(t *testing.T) {
	id := GetRunID()
	if len(id) != 6 {
		t.Errorf("expected length 6, got %d", len(id))
	}
	for _, ch := range id {
		if !strings.ContainsRune(shaLetters, ch) {
			t.Errorf("invalid character %q in run ID", ch)
		}
	}
}

func TestFormatNodeIDs(t *testing.T) {
	if got := FormatNodeIDs("disk_", []int{1, 4}); got != "[disk_1, disk_4]" {
		t.Errorf("FormatNodeIDs() = %q", got)
	}
	if got := FormatNodeIDs("disk_", nil); got != "[]" {
		t.Errorf("FormatNodeIDs(nil) = %q", got)
	}
}
