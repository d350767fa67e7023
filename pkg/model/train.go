package model

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/dataset"
	"github.com/dapslab/daps/pkg/featpack"
)

type TrainOptions struct {
	Epochs       int
	LearningRate float32
	BatchSize    int     // Used to derive the label balancing weights
	WeightDecay  float32 // L2 penalty on the weights
	Seed         int64   // Shuffle seed
}

func NewTrainOptions() TrainOptions {
	return TrainOptions{
		Epochs:       20,
		LearningRate: 0.01,
		BatchSize:    32,
		WeightDecay:  1e-4,
		Seed:         313,
	}
}

// Train fits a logistic scorer to a segment dataset. Positive and negative
// labels are reweighted so that the scarce side is not drowned out. If val
// is non-nil, the returned model is the epoch snapshot with the lowest
// validation loss.
func Train(log logs.Log, train, val *featpack.SegmentDataset, windowLength int, opts TrainOptions) (*Model, error) {
	if train.NumWindows() == 0 {
		return nil, fmt.Errorf("training dataset is empty")
	}
	if opts.Epochs <= 0 || opts.LearningRate <= 0 {
		return nil, fmt.Errorf("invalid training options: epochs=%v, learning rate=%v", opts.Epochs, opts.LearningRate)
	}
	m, err := NewModel(Config{
		Architecture: "logistic",
		T:            windowLength,
		Te:           train.Te,
		FeatDim:      train.FeatDim,
		K:            train.Labels.Cols,
	})
	if err != nil {
		return nil, err
	}

	wPos, wNeg := dataset.BalanceLabels(train.Labels, opts.BatchSize)
	log.Infof("Training on %v windows (%v anchors, input dim %v), label weights pos=%.4f neg=%.4f",
		train.NumWindows(), m.Config.K, m.Config.InputDim(), wPos, wNeg)

	rng := rand.New(rand.NewSource(opts.Seed))
	order := make([]int, train.NumWindows())
	for i := range order {
		order[i] = i
	}

	dim := m.Config.InputDim()
	best := (*Model)(nil)
	bestLoss := float32(math32.MaxFloat32)
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		trainLoss := float32(0)
		for _, i := range order {
			x := train.Window(i).Data
			labels := train.Labels.Row(i)
			for k := 0; k < m.Config.K; k++ {
				y := labels[k]
				p := sigmoid(m.logit(k, x))
				w := wNeg
				if y > 0 {
					w = wPos
				}
				trainLoss += w * bce(p, y)
				// d(weighted BCE)/d(logit) = w * (p - y)
				g := opts.LearningRate * w * (p - y)
				row := m.Weights[k*dim : (k+1)*dim]
				decay := 1 - opts.LearningRate*opts.WeightDecay
				for j, v := range x {
					row[j] = row[j]*decay - g*v
				}
				m.Bias[k] -= g
			}
		}
		trainLoss /= float32(len(order) * m.Config.K)

		if val != nil && val.NumWindows() > 0 {
			valLoss := Evaluate(m, val)
			log.Infof("Epoch %v/%v: train loss %.5f, validation loss %.5f", epoch, opts.Epochs, trainLoss, valLoss)
			if valLoss < bestLoss {
				bestLoss = valLoss
				best = m.clone()
			}
		} else {
			log.Infof("Epoch %v/%v: train loss %.5f", epoch, opts.Epochs, trainLoss)
		}
	}
	if best != nil {
		log.Infof("Best validation loss %.5f", bestLoss)
		return best, nil
	}
	return m, nil
}

// Evaluate returns the mean unweighted cross-entropy of a dataset.
func Evaluate(m *Model, ds *featpack.SegmentDataset) float32 {
	loss := float32(0)
	for i := 0; i < ds.NumWindows(); i++ {
		x := ds.Window(i).Data
		labels := ds.Labels.Row(i)
		for k := 0; k < m.Config.K; k++ {
			loss += bce(sigmoid(m.logit(k, x)), labels[k])
		}
	}
	return loss / float32(ds.NumWindows()*m.Config.K)
}

func bce(p, y float32) float32 {
	const eps = 1e-7
	if p < eps {
		p = eps
	} else if p > 1-eps {
		p = 1 - eps
	}
	if y > 0 {
		return -math32.Log(p)
	}
	return -math32.Log(1 - p)
}

func (m *Model) clone() *Model {
	c := &Model{
		Config:  m.Config,
		Weights: make([]float32, len(m.Weights)),
		Bias:    make([]float32, len(m.Bias)),
	}
	copy(c.Weights, m.Weights)
	copy(c.Bias, m.Bias)
	return c
}
