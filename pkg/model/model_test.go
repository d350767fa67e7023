package model

import (
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/c3d"
	"github.com/dapslab/daps/pkg/featpack"
	"github.com/stretchr/testify/require"
)

// Linearly separable toy dataset: anchor 0 is positive when the first
// feature is large, anchor 1 when the second feature is large.
func toyDataset(n int) *featpack.SegmentDataset {
	ds := &featpack.SegmentDataset{
		Te:      1,
		FeatDim: 2,
		Labels:  c3d.NewMatrix(0, 2),
	}
	for i := 0; i < n; i++ {
		a := float32(i%2) // alternate which feature dominates
		ds.Features = append(ds.Features, 1+a, 2-a)
		ds.Labels.Data = append(ds.Labels.Data, 1-a, a)
		ds.Labels.Rows++
		ds.Videos = append(ds.Videos, "toy")
		ds.FInit = append(ds.FInit, int32(i))
	}
	return ds
}

func TestTrain(t *testing.T) {
	log := logs.NewTestingLog(t)
	train := toyDataset(64)
	val := toyDataset(16)

	opts := NewTrainOptions()
	opts.Epochs = 200
	opts.LearningRate = 0.5
	opts.WeightDecay = 0

	m, err := Train(log, train, val, 16, opts)
	require.NoError(t, err)
	require.Equal(t, 2, m.Config.K)
	require.Equal(t, 2, m.Config.InputDim())

	// Feature (1,2) belongs to anchor 0, (2,1) to anchor 1
	s := m.Score([]float32{1, 2})
	require.Greater(t, s[0], float32(0.8))
	require.Less(t, s[1], float32(0.2))
	s = m.Score([]float32{2, 1})
	require.Less(t, s[0], float32(0.2))
	require.Greater(t, s[1], float32(0.8))

	require.Less(t, Evaluate(m, val), float32(0.2))
}

func TestTrainDeterministic(t *testing.T) {
	log := logs.NewTestingLog(t)
	opts := NewTrainOptions()
	opts.Epochs = 5

	m1, err := Train(log, toyDataset(32), nil, 16, opts)
	require.NoError(t, err)
	m2, err := Train(log, toyDataset(32), nil, 16, opts)
	require.NoError(t, err)
	require.Equal(t, m1.Weights, m2.Weights)
	require.Equal(t, m1.Bias, m2.Bias)
}

func TestTrainErrors(t *testing.T) {
	log := logs.NewTestingLog(t)
	empty := &featpack.SegmentDataset{Te: 1, FeatDim: 2, Labels: c3d.NewMatrix(0, 2)}
	_, err := Train(log, empty, nil, 16, NewTrainOptions())
	require.Error(t, err)

	opts := NewTrainOptions()
	opts.Epochs = 0
	_, err = Train(log, toyDataset(8), nil, 16, opts)
	require.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	m, err := NewModel(Config{T: 512, Te: 63, FeatDim: 4, K: 3})
	require.NoError(t, err)
	for i := range m.Weights {
		m.Weights[i] = float32(i) * 0.5
	}
	m.Bias = []float32{1, 2, 3}

	filename := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, m.Save(filename))

	loaded, err := Load(filename)
	require.NoError(t, err)
	require.Equal(t, m.Config, loaded.Config)
	require.Equal(t, m.Weights, loaded.Weights)
	require.Equal(t, m.Bias, loaded.Bias)

	// Truncated weights must be rejected
	m.Weights = m.Weights[:5]
	require.NoError(t, m.Save(filename))
	_, err = Load(filename)
	require.Error(t, err)
}
