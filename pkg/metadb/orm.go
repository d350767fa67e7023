package metadb

import (
	"github.com/dapslab/daps/pkg/segment"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Video is one untrimmed video of the dataset.
type Video struct {
	BaseModel
	Name      string  `json:"name"`      // Dataset-wide unique video identifier
	Duration  float64 `json:"duration"`  // Duration in seconds
	FrameRate float64 `json:"frameRate"` // Frames per second
	NumFrames int     `json:"numFrames"` // Total number of frames
	Subset    string  `json:"subset"`    // "training", "validation" or "testing"
}

// Instance is one annotated action inside a video.
type Instance struct {
	BaseModel
	VideoID   int64  `json:"videoID"`
	TInit     int    `json:"tInit"`     // First frame of the action (0-indexed)
	NumFrames int    `json:"numFrames"` // Length of the action in frames
	Label     string `json:"label"`     // Action class name
}

// Segment returns the instance as a closed temporal interval.
func (i *Instance) Segment() segment.Segment {
	return segment.FromInitDuration(float32(i.TInit), float32(i.NumFrames))
}
