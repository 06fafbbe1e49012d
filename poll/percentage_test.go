// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poll

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVotePercentageExact(t *testing.T) {
	tests := []struct {
		name     string
		counts   []int32
		total    int32
		expected []int32
	}{
		{
			name:     "no voters",
			counts:   []int32{0, 0, 0},
			total:    0,
			expected: []int32{0, 0, 0},
		},
		{
			name:     "single voter",
			counts:   []int32{1, 0},
			total:    1,
			expected: []int32{100, 0},
		},
		{
			name:     "exact division",
			counts:   []int32{10, 10, 5},
			total:    25,
			expected: []int32{40, 40, 20},
		},
		{
			name:     "half and half",
			counts:   []int32{1, 1},
			total:    2,
			expected: []int32{50, 50},
		},
		{
			name:     "two to one",
			counts:   []int32{2, 1},
			total:    3,
			expected: []int32{67, 33},
		},
		{
			name:     "bonus point to the smaller gap",
			counts:   []int32{4, 1, 1},
			total:    6,
			expected: []int32{66, 17, 17},
		},
		{
			name:     "inconsistent total clamps down",
			counts:   []int32{1, 1},
			total:    100,
			expected: []int32{50, 50},
		},
		{
			name:     "partial data rounds independently",
			counts:   []int32{1, 1, 2},
			total:    3,
			expected: []int32{33, 33, 67},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, VotePercentage(tt.counts, tt.total))
		})
	}
}

// Three equal options cannot absorb a single leftover point without breaking
// the equal-votes-equal-percent rule, so all must stay at 33.
func TestVotePercentageEqualThirds(t *testing.T) {
	require := require.New(t)

	result := VotePercentage([]int32{1, 1, 1}, 3)
	require.Len(result, 3)
	require.Equal(result[0], result[1])
	require.Equal(result[1], result[2])

	var sum int32
	for _, p := range result {
		sum += p
	}
	require.LessOrEqual(sum, int32(100))
}

func TestVotePercentageInvariants(t *testing.T) {
	require := require.New(t)

	rng := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 1000; iter++ {
		n := 1 + rng.IntN(10)
		counts := make([]int32, n)
		var sum int32
		for i := range counts {
			counts[i] = int32(rng.IntN(50))
			sum += counts[i]
		}
		total := sum + int32(rng.IntN(3))

		result := VotePercentage(counts, total)
		require.Len(result, n)

		var percentSum int32
		for i, p := range result {
			require.GreaterOrEqual(p, int32(0), "counts=%v total=%d", counts, total)
			require.LessOrEqual(p, int32(100), "counts=%v total=%d", counts, total)
			percentSum += p
			for j := 0; j < i; j++ {
				if counts[j] == counts[i] {
					require.Equal(result[j], result[i],
						"equal counts diverged: counts=%v total=%d result=%v", counts, total, result)
				}
			}
		}
		if total == sum {
			require.LessOrEqual(percentSum, int32(100), "counts=%v total=%d", counts, total)
		}
	}
}
