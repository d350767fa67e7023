package segment

import (
	"github.com/chewxy/math32"
)

// Package segment implements temporal interval math for action proposals.
// Segments are closed frame intervals, so a segment covering a single frame
// has Init == End and Duration 1.

// Segment is a temporal interval in frame coordinates.
type Segment struct {
	Init float32 `json:"init"`
	End  float32 `json:"end"`
}

// Duration in frames. Closed interval, so End-Init+1.
func (s Segment) Duration() float32 {
	return s.End - s.Init + 1
}

// Center frame of the segment.
func (s Segment) Center() float32 {
	return math32.Round(0.5 * (s.Init + s.End))
}

func (s Segment) IsValid() bool {
	return s.End >= s.Init
}

// FromCenter builds a segment from a [center, duration] pair.
func FromCenter(center, duration float32) Segment {
	init := math32.Ceil(center - 0.5*duration)
	return Segment{
		Init: init,
		End:  init + duration - 1,
	}
}

// FromInitDuration builds a segment from [first frame, number of frames].
func FromInitDuration(init, duration float32) Segment {
	return Segment{
		Init: init,
		End:  init + duration - 1,
	}
}

// Intersection returns the overlapping interval of two segments.
// The result is invalid (End < Init) when the segments are disjoint.
func (s Segment) Intersection(b Segment) Segment {
	return Segment{
		Init: math32.Max(s.Init, b.Init),
		End:  math32.Min(s.End, b.End),
	}
}

// IntersectionRatio returns the size of the intersection of s and b,
// divided by the size of s.
func (s Segment) IntersectionRatio(b Segment) float32 {
	isect := s.Intersection(b)
	if !isect.IsValid() {
		return 0
	}
	return isect.Duration() / s.Duration()
}

// IoU is the frame-level intersection over union of two segments.
func (s Segment) IoU(b Segment) float32 {
	isect := s.Intersection(b)
	if !isect.IsValid() {
		return 0
	}
	union := s.Duration() + b.Duration() - isect.Duration()
	return isect.Duration() / union
}

// IoUMatrix computes IoU between every target and every test segment.
// Result is [len(targets)][len(tests)].
func IoUMatrix(targets, tests []Segment) [][]float32 {
	m := make([][]float32, len(targets))
	for i, t := range targets {
		m[i] = make([]float32, len(tests))
		for j, u := range tests {
			m[i][j] = t.IoU(u)
		}
	}
	return m
}

// MaxIoU returns the highest IoU between s and any segment in tests,
// or 0 when tests is empty.
func (s Segment) MaxIoU(tests []Segment) float32 {
	best := float32(0)
	for _, t := range tests {
		if v := s.IoU(t); v > best {
			best = v
		}
	}
	return best
}

// UnitScale maps a segment inside a window of T frames starting at 'init'
// onto the unit reference scale: center in [0,1] over T-1, duration in (0,1]
// over T. This is the coordinate system priors live in.
func UnitScale(s Segment, T int, init float32) (center, duration float32) {
	center = (s.Center() - init) / float32(T-1)
	duration = s.Duration() / float32(T)
	return center, duration
}

// UnitRescale is the inverse of UnitScale: it places a normalized
// [center, duration] anchor inside a window of T frames starting at 'init'.
func UnitRescale(center, duration float32, T int, init float32) Segment {
	return FromCenter(init+center*float32(T-1), duration*float32(T))
}

// Clip limits the segment to the frame range [0, numFrames-1].
func (s Segment) Clip(numFrames int) Segment {
	return Segment{
		Init: math32.Max(0, s.Init),
		End:  math32.Min(float32(numFrames-1), s.End),
	}
}
