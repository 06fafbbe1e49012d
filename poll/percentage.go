// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poll

import "sort"

// VotePercentage converts per-option voter counts into display percentages.
//
// The result has the same length as voterCounts, every value is in [0, 100],
// and the sum never exceeds 100. Options with equal voter counts always
// receive equal percentages; the remaining points after flooring are handed
// out greedily to the count-groups with the smallest rounding gap. This is a
// fixed heuristic, not an optimal apportionment; the tie-break order is part
// of the contract because rendered snapshots depend on it.
func VotePercentage(voterCounts []int32, totalVoterCount int32) []int32 {
	var sum int32
	for _, count := range voterCounts {
		sum += count
	}
	if totalVoterCount > sum {
		// Inconsistent input; trust the individual counts.
		totalVoterCount = sum
	}

	result := make([]int32, len(voterCounts))
	if totalVoterCount == 0 {
		return result
	}
	if totalVoterCount != sum {
		// Partial data. Round each option to the nearest percent
		// independently; no fairness guarantee in this branch.
		for i, count := range voterCounts {
			result[i] = int32((int64(count)*200 + int64(totalVoterCount)) / int64(totalVoterCount) / 2)
		}
		return result
	}

	// Exact floor percentages plus the gap each option needs to round up to
	// the next percent.
	var percentSum int32
	gap := make([]int32, len(voterCounts))
	for i, count := range voterCounts {
		multiplied := int64(count) * 100
		result[i] = int32(multiplied / int64(totalVoterCount))
		gap[i] = int32(int64(result[i]+1)*int64(totalVoterCount) - multiplied)
		percentSum += result[i]
	}
	if percentSum == 100 {
		return result
	}

	// Distribute the remaining 100-percentSum points to whole groups of
	// equal-count options so that equal counts keep equal percentages.
	type group struct {
		pos     int
		members int32
	}
	groupByCount := make(map[int32]*group, len(voterCounts))
	for i, count := range voterCounts {
		g := groupByCount[count]
		if g == nil {
			g = &group{}
			groupByCount[count] = g
		}
		g.pos = i
		g.members++
	}

	sorted := make([]group, 0, len(groupByCount))
	for _, g := range groupByCount {
		if gap[g.pos] > totalVoterCount/2 {
			// Rounding up here would round in the wrong direction.
			continue
		}
		if totalVoterCount%2 == 0 && gap[g.pos] == totalVoterCount/2 && result[g.pos] >= 50 {
			// Round halves down to the 50% boundary.
			continue
		}
		sorted = append(sorted, *g)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if gap[sorted[i].pos] != gap[sorted[j].pos] {
			return gap[sorted[i].pos] < gap[sorted[j].pos]
		}
		if sorted[i].members != sorted[j].members {
			return sorted[i].members > sorted[j].members
		}
		return sorted[i].pos < sorted[j].pos
	})

	leftPercent := 100 - percentSum
	for _, g := range sorted {
		if g.members > leftPercent {
			continue
		}
		leftPercent -= g.members
		for i, count := range voterCounts {
			if count == voterCounts[g.pos] {
				result[i]++
			}
		}
		if leftPercent == 0 {
			break
		}
	}
	return result
}
