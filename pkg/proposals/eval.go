package proposals

import (
	"github.com/dapslab/daps/pkg/segment"
)

// Recall is the fraction of ground-truth instances covered by at least one
// proposal with temporal IoU of tiou or better. gt maps video name to its
// annotated instances.
func Recall(props []Proposal, gt map[string][]segment.Segment, tiou float32) float32 {
	byVideo := GroupByVideo(props)
	total := 0
	matched := 0
	for video, instances := range gt {
		total += len(instances)
		vp := byVideo[video]
		if len(vp) == 0 {
			continue
		}
		segs := make([]segment.Segment, len(vp))
		for i, p := range vp {
			segs[i] = p.Segment()
		}
		for _, ins := range instances {
			if ins.MaxIoU(segs) >= tiou {
				matched++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float32(matched) / float32(total)
}

// AverageRecall averages Recall over the IoU thresholds 0.5 to 0.95 in
// steps of 0.05.
func AverageRecall(props []Proposal, gt map[string][]segment.Segment) float32 {
	sum := float32(0)
	n := 0
	for tiou := float32(0.5); tiou < 0.951; tiou += 0.05 {
		sum += Recall(props, gt, tiou)
		n++
	}
	return sum / float32(n)
}

// RecallAtCounts computes AverageRecall with each video truncated to its
// top-n proposals, for every n in counts. Proposals must already be
// ranked best first within each video.
func RecallAtCounts(props []Proposal, gt map[string][]segment.Segment, counts []int) []float32 {
	byVideo := GroupByVideo(props)
	out := make([]float32, len(counts))
	for i, n := range counts {
		var truncated []Proposal
		for _, vp := range byVideo {
			if len(vp) > n {
				vp = vp[:n]
			}
			truncated = append(truncated, vp...)
		}
		out[i] = AverageRecall(truncated, gt)
	}
	return out
}
