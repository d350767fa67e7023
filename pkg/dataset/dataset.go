package dataset

import (
	"fmt"

	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/c3d"
	"github.com/dapslab/daps/pkg/featpack"
	"github.com/dapslab/daps/pkg/metadb"
	"github.com/dapslab/daps/pkg/priors"
)

// Package dataset turns sparse per-video instance annotations into dense
// overlap-labeled training segments: fixed-length windows slid over each
// video, with one binary label per prior anchor.

// Options control window enumeration and labeling.
type Options struct {
	WindowLength int     // T, frames per window
	WindowStride int     // Stride between window starts, multiple of TStride
	TSize        int     // C3D temporal receptive field
	TStride      int     // Stride between extracted clips
	PositiveIoU  float32 // Anchor label is 1 when IoU with an instance reaches this
}

func NewOptions() Options {
	return Options{
		WindowLength: 512,
		WindowStride: 128,
		TSize:        c3d.DefaultTSize,
		TStride:      c3d.DefaultStepSize,
		PositiveIoU:  0.5,
	}
}

// Te is the number of clip features per window.
func (o Options) Te() int {
	return (o.WindowLength-o.TSize)/o.TStride + 1
}

func (o Options) validate() error {
	if o.WindowLength <= 0 || o.WindowStride <= 0 || o.TSize <= 0 || o.TStride <= 0 {
		return fmt.Errorf("window geometry must be positive")
	}
	if o.WindowStride%o.TStride != 0 {
		return fmt.Errorf("window stride %v must be a multiple of the clip stride %v", o.WindowStride, o.TStride)
	}
	if (o.WindowLength-o.TSize)%o.TStride != 0 {
		return fmt.Errorf("window length %v does not align with clip geometry (t_size %v, stride %v)", o.WindowLength, o.TSize, o.TStride)
	}
	return nil
}

// Builder assembles segment datasets.
type Builder struct {
	log    logs.Log
	meta   *metadb.MetaDB
	feats  *featpack.Reader
	priors *priors.Priors
	opts   Options
}

func NewBuilder(log logs.Log, meta *metadb.MetaDB, feats *featpack.Reader, p *priors.Priors, opts Options) (*Builder, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if p.T != opts.WindowLength {
		return nil, fmt.Errorf("priors were generated for T=%v, dataset uses T=%v", p.T, opts.WindowLength)
	}
	return &Builder{
		log:    log,
		meta:   meta,
		feats:  feats,
		priors: p,
		opts:   opts,
	}, nil
}

// Build creates the segment dataset of one subset ("training", "validation").
func (b *Builder) Build(subset string) (*featpack.SegmentDataset, error) {
	videos, err := b.meta.Videos(subset)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("no videos in subset '%v'", subset)
	}

	te := b.opts.Te()
	ds := &featpack.SegmentDataset{
		Te:      te,
		FeatDim: 0,
		Labels:  &c3d.Matrix{Rows: 0, Cols: b.priors.K},
		Videos:  []string{},
		FInit:   []int32{},
	}

	for _, video := range videos {
		n, err := b.buildVideo(ds, &video)
		if err != nil {
			return nil, err
		}
		b.log.Infof("%v: %v windows", video.Name, n)
	}
	if ds.NumWindows() == 0 {
		return nil, fmt.Errorf("subset '%v' produced no windows", subset)
	}
	return ds, nil
}

func (b *Builder) buildVideo(ds *featpack.SegmentDataset, video *metadb.Video) (int, error) {
	T := b.opts.WindowLength
	if video.NumFrames < T {
		b.log.Warnf("Skipping %v: %v frames is shorter than the window length %v", video.Name, video.NumFrames, T)
		return 0, nil
	}
	instances, err := b.meta.InstanceSegments(video.Name)
	if err != nil {
		return 0, err
	}
	numClips, err := b.feats.NumClips(video.Name)
	if err != nil {
		return 0, err
	}

	te := b.opts.Te()
	added := 0
	for init := 0; init+T <= video.NumFrames; init += b.opts.WindowStride {
		firstClip := init / b.opts.TStride
		if firstClip+te > numClips {
			// The feature extractor saw fewer frames than the metadata claims
			break
		}
		feats, err := b.feats.FeatureWindow(video.Name, firstClip, te)
		if err != nil {
			return 0, err
		}
		if ds.FeatDim == 0 {
			ds.FeatDim = feats.Cols
		} else if feats.Cols != ds.FeatDim {
			return 0, fmt.Errorf("%v: feature dim %v, dataset has %v", video.Name, feats.Cols, ds.FeatDim)
		}

		iou := b.priors.MatchIoU(float32(init), instances)
		labelRow := make([]float32, b.priors.K)
		for k, v := range iou {
			if v >= b.opts.PositiveIoU {
				labelRow[k] = 1
			}
		}

		ds.Features = append(ds.Features, feats.Data...)
		ds.Labels.Data = append(ds.Labels.Data, labelRow...)
		ds.Labels.Rows++
		ds.Videos = append(ds.Videos, video.Name)
		ds.FInit = append(ds.FInit, int32(init))
		added++
	}
	return added, nil
}

// BalanceLabels computes weights that balance the positive/negative label
// mass of a label matrix. The dominant side is scaled down to match the
// scarce side.
func BalanceLabels(labels *c3d.Matrix, batchSize int) (wPos, wNeg float32) {
	if batchSize <= 0 {
		batchSize = 1
	}
	pos := float32(0)
	for _, v := range labels.Data {
		pos += v
	}
	wPos = pos / float32(batchSize)
	wNeg = float32(len(labels.Data))/float32(batchSize) - wPos

	if wPos > wNeg {
		wPos, wNeg = wNeg/wPos, 1
	} else if wPos < wNeg {
		wNeg, wPos = wPos/wNeg, 1
	} else {
		wPos, wNeg = 1, 1
	}
	return wPos, wNeg
}
