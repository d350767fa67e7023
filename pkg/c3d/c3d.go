package c3d

import (
	"encoding/json"
	"fmt"
)

// Package c3d deals with the external C3D feature extractor: generating its
// input lists, and reading the binary feature blobs it writes. The network
// itself is external (Caffe/C3D); we never run it in-process.

const (
	// Temporal receptive field of the C3D network, in frames.
	DefaultTSize = 16
	// Stride between consecutive clips of a long video.
	DefaultStepSize = 8
	// Dimensionality of the fc7 activations we extract.
	DefaultFeatureDim = 4096
	// File extension of fc7 blobs written by extract_image_features.
	DefaultLayerExt = ".fc7-1"
)

// Matrix is a dense row-major float32 matrix.
// Rows are clips (or time steps), columns are feature dimensions.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]float32, rows*cols),
	}
}

func (m *Matrix) At(r, c int) float32 {
	return m.Data[r*m.Cols+c]
}

func (m *Matrix) Set(r, c int, v float32) {
	m.Data[r*m.Cols+c] = v
}

// Row returns row r as a slice aliasing the matrix storage.
func (m *Matrix) Row(r int) []float32 {
	return m.Data[r*m.Cols : (r+1)*m.Cols]
}

// ExtractorConfig is the JSON-like configuration object passed to the
// external extract_image_features tool.
type ExtractorConfig struct {
	SeqSource string `json:"seq_source"` // Input list file (clips to extract)
	MeanFile  string `json:"mean_file"`  // Mean cube file of the C3D model
	BatchSize int    `json:"batch_size"`
	UseImage  bool   `json:"use_image"` // Read frames from image folders rather than video files
}

// ExtractionCommand renders the argv of the external feature extraction tool.
// We document and construct the invocation, but running it is the caller's
// business (it needs a GPU and a Caffe build).
func ExtractionCommand(tool, modelFile, outputPrefixFile, layer string, cfg ExtractorConfig) ([]string, error) {
	if tool == "" {
		tool = "extract_image_features.bin"
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extractor config: %w", err)
	}
	return []string{
		tool,
		modelFile,
		cfg.SeqSource,
		outputPrefixFile,
		layer,
		string(cfgJSON),
	}, nil
}
