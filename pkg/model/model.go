// Package model implements the proposal scorer: a per-anchor logistic
// model over the concatenated clip features of one window. The weights
// and config are saved together in a single JSON file.
package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chewxy/math32"
)

// Config describes the geometry a model was trained for.
type Config struct {
	Architecture string `json:"architecture"` // "logistic"
	T            int    `json:"t"`            // Window length in frames
	Te           int    `json:"te"`           // Clip features per window
	FeatDim      int    `json:"feat_dim"`     // Dimension of one clip feature
	K            int    `json:"k"`            // Number of anchors scored
}

// InputDim is the size of the flattened feature vector of one window.
func (c *Config) InputDim() int {
	return c.Te * c.FeatDim
}

func (c *Config) validate() error {
	if c.T <= 0 || c.Te <= 0 || c.FeatDim <= 0 || c.K <= 0 {
		return fmt.Errorf("invalid model config: t=%v, te=%v, feat_dim=%v, k=%v", c.T, c.Te, c.FeatDim, c.K)
	}
	return nil
}

// Model scores every anchor of a window. Weights is row-major [K, InputDim].
type Model struct {
	Config  Config    `json:"config"`
	Weights []float32 `json:"weights"`
	Bias    []float32 `json:"bias"`
}

func NewModel(cfg Config) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Architecture == "" {
		cfg.Architecture = "logistic"
	}
	return &Model{
		Config:  cfg,
		Weights: make([]float32, cfg.K*cfg.InputDim()),
		Bias:    make([]float32, cfg.K),
	}, nil
}

// Score returns one confidence in [0,1] per anchor. x is the flattened
// window feature vector, length InputDim.
func (m *Model) Score(x []float32) []float32 {
	dim := m.Config.InputDim()
	if len(x) != dim {
		panic(fmt.Sprintf("feature vector has %v values, model expects %v", len(x), dim))
	}
	scores := make([]float32, m.Config.K)
	for k := 0; k < m.Config.K; k++ {
		scores[k] = sigmoid(m.logit(k, x))
	}
	return scores
}

func (m *Model) logit(k int, x []float32) float32 {
	w := m.Weights[k*m.Config.InputDim() : (k+1)*m.Config.InputDim()]
	z := m.Bias[k]
	for i, v := range x {
		z += w[i] * v
	}
	return z
}

func sigmoid(z float32) float32 {
	// Clamp to keep Exp finite
	if z < -30 {
		z = -30
	} else if z > 30 {
		z = 30
	}
	return 1 / (1 + math32.Exp(-z))
}

// Save model config and weights to a JSON file
func (m *Model) Save(filename string) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}

// Load model config and weights from a JSON file
func Load(filename string) (*Model, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	m := &Model{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, err
	}
	if err := m.Config.validate(); err != nil {
		return nil, err
	}
	if len(m.Weights) != m.Config.K*m.Config.InputDim() || len(m.Bias) != m.Config.K {
		return nil, fmt.Errorf("model weights do not match config (%v weights, %v biases, expected %v and %v)",
			len(m.Weights), len(m.Bias), m.Config.K*m.Config.InputDim(), m.Config.K)
	}
	return m, nil
}
