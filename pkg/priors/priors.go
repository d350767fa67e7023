package priors

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dapslab/daps/pkg/segment"
)

// Package priors generates the anchor segments ("priors") of the proposal
// model: K canonical [center, duration] pairs on the unit scale of a window,
// clustered from the locations of training annotations inside their windows.

// Priors are the anchor segments the model scores.
type Priors struct {
	T       int          `json:"t"`    // Window length in frames the priors were computed for
	K       int          `json:"k"`    // Number of anchors
	Seed    int64        `json:"seed"` // RNG seed used during generation
	Anchors [][2]float32 `json:"anchors"`
}

// Save writes the priors as JSON.
func (p *Priors) Save(filename string) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0664)
}

// Load reads priors from a JSON file.
func Load(filename string) (*Priors, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load priors %v: %w", filename, err)
	}
	p := &Priors{}
	if err := json.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("failed to load priors %v: %w", filename, err)
	}
	if p.K != len(p.Anchors) {
		return nil, fmt.Errorf("priors %v: K=%v but %v anchors", filename, p.K, len(p.Anchors))
	}
	return p, nil
}

// AnchorSegments places every anchor inside a window of T frames starting at
// 'init', in frame coordinates.
func (p *Priors) AnchorSegments(init float32) []segment.Segment {
	segs := make([]segment.Segment, len(p.Anchors))
	for i, a := range p.Anchors {
		segs[i] = segment.UnitRescale(a[0], a[1], p.T, init)
	}
	return segs
}

// MatchIoU returns, per anchor, the best IoU between the anchor placed in the
// window starting at 'init' and any of the instances.
func (p *Priors) MatchIoU(init float32, instances []segment.Segment) []float32 {
	iou := make([]float32, len(p.Anchors))
	for i, anchor := range p.AnchorSegments(init) {
		iou[i] = anchor.MaxIoU(instances)
	}
	return iou
}

// CollectWindowAnnotations slides windows of T frames (stride 'stride') over
// a video and returns the unit-scaled [center, duration] of every instance
// whose overlap with a window covers at least half of the instance. The
// instance is clamped to the window before scaling.
func CollectWindowAnnotations(instances []segment.Segment, numFrames, T, stride int) [][2]float32 {
	out := [][2]float32{}
	if numFrames < T {
		return out
	}
	for init := 0; init+T <= numFrames; init += stride {
		window := segment.FromInitDuration(float32(init), float32(T))
		for _, ins := range instances {
			if ins.IntersectionRatio(window) < 0.5 {
				continue
			}
			clamped := ins.Intersection(window)
			c, d := segment.UnitScale(clamped, T, window.Init)
			out = append(out, [2]float32{c, d})
		}
	}
	return out
}
