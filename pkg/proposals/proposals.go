// Package proposals runs the trained scorer over whole videos and turns
// anchor confidences into ranked temporal action proposals.
package proposals

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/featpack"
	"github.com/dapslab/daps/pkg/model"
	"github.com/dapslab/daps/pkg/priors"
	"github.com/dapslab/daps/pkg/segment"
)

// Proposal is one scored candidate segment of one video. Frame bounds are
// inclusive on both ends.
type Proposal struct {
	Video string  `json:"video-name"`
	FInit float32 `json:"f-init"`
	FEnd  float32 `json:"f-end"`
	Score float32 `json:"score"`
}

func (p *Proposal) Segment() segment.Segment {
	return segment.Segment{Init: p.FInit, End: p.FEnd}
}

type GenerateOptions struct {
	Stride       int     // Stride between retrieval windows, multiple of the clip stride
	TStride      int     // Stride between extracted clips
	NMSIoU       float32 // Suppression threshold
	MaxProposals int     // 0 means unlimited
}

func NewGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Stride:       128,
		TStride:      8,
		NMSIoU:       segment.DefaultNMSIoUThreshold,
		MaxProposals: 0,
	}
}

// Generator produces proposals for one video at a time.
type Generator struct {
	log    logs.Log
	model  *model.Model
	priors *priors.Priors
	feats  *featpack.Reader
	opts   GenerateOptions
}

func NewGenerator(log logs.Log, m *model.Model, p *priors.Priors, feats *featpack.Reader, opts GenerateOptions) (*Generator, error) {
	if p.T != m.Config.T {
		return nil, fmt.Errorf("priors were generated for T=%v, model expects T=%v", p.T, m.Config.T)
	}
	if p.K != m.Config.K {
		return nil, fmt.Errorf("priors have %v anchors, model scores %v", p.K, m.Config.K)
	}
	if opts.Stride <= 0 || opts.TStride <= 0 {
		return nil, fmt.Errorf("strides must be positive")
	}
	if opts.Stride%opts.TStride != 0 {
		return nil, fmt.Errorf("retrieval stride %v must be a multiple of the clip stride %v", opts.Stride, opts.TStride)
	}
	return &Generator{
		log:    log,
		model:  m,
		priors: p,
		feats:  feats,
		opts:   opts,
	}, nil
}

// Video scores every retrieval window of one video and returns the
// suppressed proposals, best first. Videos shorter than the window length
// get a single window anchored at frame zero, with the missing clip
// features padded from the last available clip.
func (g *Generator) Video(videoName string, numFrames int) ([]Proposal, error) {
	numClips, err := g.feats.NumClips(videoName)
	if err != nil {
		return nil, err
	}
	if numClips == 0 {
		return nil, fmt.Errorf("video '%v' has no clip features", videoName)
	}

	T := g.model.Config.T
	inits := []int{0}
	for init := g.opts.Stride; init+T <= numFrames; init += g.opts.Stride {
		inits = append(inits, init)
	}

	var candidates []segment.Segment
	var scores []float32
	for _, init := range inits {
		x, err := g.windowFeatures(videoName, init/g.opts.TStride, numClips)
		if err != nil {
			return nil, err
		}
		conf := g.model.Score(x)
		anchors := g.priors.AnchorSegments(float32(init))
		for k, s := range anchors {
			s = s.Clip(numFrames)
			if !s.IsValid() {
				continue
			}
			candidates = append(candidates, s)
			scores = append(scores, conf[k])
		}
	}

	keep := segment.NMS(candidates, scores, g.opts.NMSIoU)
	if g.opts.MaxProposals > 0 && len(keep) > g.opts.MaxProposals {
		keep = keep[:g.opts.MaxProposals]
	}
	props := make([]Proposal, 0, len(keep))
	for _, i := range keep {
		props = append(props, Proposal{
			Video: videoName,
			FInit: candidates[i].Init,
			FEnd:  candidates[i].End,
			Score: scores[i],
		})
	}
	g.log.Infof("%v: %v windows, %v candidates, %v proposals", videoName, len(inits), len(candidates), len(props))
	return props, nil
}

// windowFeatures reads te clips starting at firstClip, padding with the
// last clip when the video runs out of features.
func (g *Generator) windowFeatures(videoName string, firstClip, numClips int) ([]float32, error) {
	te := g.model.Config.Te
	avail := numClips - firstClip
	if avail > te {
		avail = te
	}
	if avail <= 0 {
		return nil, fmt.Errorf("video '%v': window starts past the last clip", videoName)
	}
	mat, err := g.feats.FeatureWindow(videoName, firstClip, avail)
	if err != nil {
		return nil, err
	}
	if mat.Cols != g.model.Config.FeatDim {
		return nil, fmt.Errorf("video '%v': feature dim %v, model expects %v", videoName, mat.Cols, g.model.Config.FeatDim)
	}
	if avail == te {
		return mat.Data, nil
	}
	x := make([]float32, te*mat.Cols)
	copy(x, mat.Data)
	last := mat.Row(avail - 1)
	for c := avail; c < te; c++ {
		copy(x[c*mat.Cols:(c+1)*mat.Cols], last)
	}
	return x, nil
}

// SortByScore orders proposals best first, preserving order on ties.
func SortByScore(props []Proposal) {
	sort.SliceStable(props, func(i, j int) bool { return props[i].Score > props[j].Score })
}

// WriteJSON saves proposals from all videos into one flat JSON list.
func WriteJSON(filename string, props []Proposal) error {
	b, err := json.MarshalIndent(props, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}

func ReadJSON(filename string) ([]Proposal, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var props []Proposal
	if err := json.Unmarshal(b, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// WriteCSV saves proposals as space-separated rows, one per proposal.
func WriteCSV(filename string, props []Proposal) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, "video-name f-init f-end score"); err != nil {
		return err
	}
	for _, p := range props {
		if _, err := fmt.Fprintf(f, "%v %v %v %v\n", p.Video, p.FInit, p.FEnd, p.Score); err != nil {
			return err
		}
	}
	return f.Close()
}

// GroupByVideo splits a flat proposal list per video, keeping each video's
// proposals in their original order.
func GroupByVideo(props []Proposal) map[string][]Proposal {
	byVideo := map[string][]Proposal{}
	for _, p := range props {
		byVideo[p.Video] = append(byVideo[p.Video], p)
	}
	return byVideo
}
