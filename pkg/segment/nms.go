package segment

import (
	"sort"
)

// Segments with IoU above this are considered duplicates during suppression.
const DefaultNMSIoUThreshold = 0.65

// NMS performs greedy non-maximum suppression over scored segments.
// Returns the indices of the segments that should be retained, ordered by
// descending score. Retained segments have pairwise IoU below iouThresh.
// A zero iouThresh uses the default.
func NMS(segments []Segment, scores []float32, iouThresh float32) []int {
	if len(segments) != len(scores) {
		panic("segments and scores length mismatch")
	}
	if iouThresh == 0 {
		iouThresh = DefaultNMSIoUThreshold
	}

	order := make([]int, len(segments))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	suppressed := map[int]bool{}
	retain := make([]int, 0, len(segments))
	for _, i := range order {
		if suppressed[i] {
			continue
		}
		retain = append(retain, i)
		for _, j := range order {
			if j == i || suppressed[j] {
				continue
			}
			if segments[i].IoU(segments[j]) >= iouThresh {
				suppressed[j] = true
			}
		}
	}
	return retain
}
