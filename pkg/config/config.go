// Package config holds the shared pipeline configuration that the command
// line tools read from a single JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dapslab/daps/pkg/c3d"
	"github.com/dapslab/daps/pkg/segment"
)

type Config struct {
	// Paths. Relative paths are resolved against DatasetRoot.
	DatasetRoot string `json:"dataset_root"`
	FrameDir    string `json:"frame_dir"`    // Dumped frames, one directory per video
	BlobDir     string `json:"blob_dir"`     // Raw C3D output blobs
	FeaturePack string `json:"feature_pack"` // HDF5 feature pack
	MetaDB      string `json:"meta_db"`      // Sqlite metadata database
	PriorsFile  string `json:"priors_file"`
	ModelFile   string `json:"model_file"`

	// Clip and window geometry
	TSize        int `json:"t_size"`
	TStride      int `json:"t_stride"`
	WindowLength int `json:"window_length"`
	WindowStride int `json:"window_stride"`
	FeatDim      int `json:"feat_dim"`
	K            int `json:"k"` // Number of prior anchors

	PoolType string `json:"pool_type"` // "", "mean", "max", "pyr:L,T", "concat:N,T"

	// Training
	PositiveIoU  float32 `json:"positive_iou"`
	Epochs       int     `json:"epochs"`
	LearningRate float32 `json:"learning_rate"`
	BatchSize    int     `json:"batch_size"`
	Seed         int64   `json:"seed"`

	// Retrieval
	RetrievalStride int     `json:"retrieval_stride"`
	NMSIoU          float32 `json:"nms_iou"`
	MaxProposals    int     `json:"max_proposals"`
}

func NewConfig() *Config {
	return &Config{
		FrameDir:        "frames",
		BlobDir:         "blobs",
		FeaturePack:     "features.hdf5",
		MetaDB:          "metadata.sqlite",
		PriorsFile:      "priors.json",
		ModelFile:       "model.json",
		TSize:           c3d.DefaultTSize,
		TStride:         c3d.DefaultStepSize,
		WindowLength:    512,
		WindowStride:    128,
		FeatDim:         c3d.DefaultFeatureDim,
		K:               64,
		PositiveIoU:     0.5,
		Epochs:          20,
		LearningRate:    0.01,
		BatchSize:       32,
		Seed:            313,
		RetrievalStride: 128,
		NMSIoU:          segment.DefaultNMSIoUThreshold,
		MaxProposals:    0,
	}
}

// Load reads a JSON config file. Fields absent from the file keep their
// defaults.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", filename, err)
	}
	cfg := NewConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", filename, err)
	}
	if cfg.DatasetRoot == "" {
		cfg.DatasetRoot = filepath.Dir(filename)
	}
	return cfg, nil
}

// Resolve turns a configured path into an absolute one, anchored at
// DatasetRoot when relative.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DatasetRoot, path)
}
