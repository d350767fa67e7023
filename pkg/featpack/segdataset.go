package featpack

import (
	"fmt"

	"github.com/dapslab/daps/pkg/c3d"
	"gonum.org/v1/hdf5"
)

// A SegmentDataset is the training/validation material of the proposal
// scorer: n fixed-length windows, each with Te pooled clip features and a
// per-anchor label vector.
type SegmentDataset struct {
	Te      int // Clip steps per window
	FeatDim int // Feature dimensionality per clip step

	Features []float32    // [n x Te x FeatDim], row-major
	Labels   *c3d.Matrix  // [n x K] anchor labels in {0, 1}
	Videos   []string     // [n] source video of each window
	FInit    []int32      // [n] first frame of each window
}

// NumWindows is the number of segments in the dataset.
func (d *SegmentDataset) NumWindows() int {
	return d.Labels.Rows
}

// Window returns the [Te x FeatDim] features of window i.
func (d *SegmentDataset) Window(i int) *c3d.Matrix {
	stride := d.Te * d.FeatDim
	return &c3d.Matrix{
		Rows: d.Te,
		Cols: d.FeatDim,
		Data: d.Features[i*stride : (i+1)*stride],
	}
}

func (d *SegmentDataset) validate() error {
	n := d.Labels.Rows
	if len(d.Features) != n*d.Te*d.FeatDim {
		return fmt.Errorf("segment dataset features are %v values, want %v", len(d.Features), n*d.Te*d.FeatDim)
	}
	if len(d.Videos) != n || len(d.FInit) != n {
		return fmt.Errorf("segment dataset refs (%v videos, %v inits) don't match %v windows", len(d.Videos), len(d.FInit), n)
	}
	return nil
}

const (
	segFeaturesName = "segment_features"
	segLabelsName   = "segment_labels"
	segVideosName   = "segment_video"
	segFInitName    = "segment_f_init"
)

// WriteSegmentDataset stores a segment dataset as HDF5.
func WriteSegmentDataset(path string, d *SegmentDataset) error {
	if err := d.validate(); err != nil {
		return err
	}
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to create segment dataset %v: %w", path, err)
	}
	defer f.Close()

	n := d.NumWindows()
	if err := writeDataset(f, segFeaturesName, []uint{uint(n), uint(d.Te), uint(d.FeatDim)}, hdf5.T_IEEE_F32LE, &d.Features); err != nil {
		return err
	}
	if err := writeDataset(f, segLabelsName, []uint{uint(n), uint(d.Labels.Cols)}, hdf5.T_IEEE_F32LE, &d.Labels.Data); err != nil {
		return err
	}
	if err := writeDataset(f, segVideosName, []uint{uint(n)}, hdf5.T_GO_STRING, &d.Videos); err != nil {
		return err
	}
	return writeDataset(f, segFInitName, []uint{uint(n)}, hdf5.T_NATIVE_INT32, &d.FInit)
}

func writeDataset(f *hdf5.File, name string, dims []uint, dtype *hdf5.Datatype, data any) error {
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer space.Close()
	dset, err := f.CreateDataset(name, dtype, space)
	if err != nil {
		return fmt.Errorf("failed to create dataset %v: %w", name, err)
	}
	defer dset.Close()
	if err := dset.Write(data); err != nil {
		return fmt.Errorf("failed to write dataset %v: %w", name, err)
	}
	return nil
}

// ReadSegmentDataset loads a segment dataset written by WriteSegmentDataset.
func ReadSegmentDataset(path string) (*SegmentDataset, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment dataset %v: %w", path, err)
	}
	defer f.Close()

	featDims, features, err := readFloatDataset(f, segFeaturesName)
	if err != nil {
		return nil, err
	}
	if len(featDims) != 3 {
		return nil, fmt.Errorf("%v: expected 3-dim %v", path, segFeaturesName)
	}
	labelDims, labels, err := readFloatDataset(f, segLabelsName)
	if err != nil {
		return nil, err
	}
	if len(labelDims) != 2 {
		return nil, fmt.Errorf("%v: expected 2-dim %v", path, segLabelsName)
	}

	d := &SegmentDataset{
		Te:       int(featDims[1]),
		FeatDim:  int(featDims[2]),
		Features: features,
		Labels: &c3d.Matrix{
			Rows: int(labelDims[0]),
			Cols: int(labelDims[1]),
			Data: labels,
		},
	}

	vdset, err := f.OpenDataset(segVideosName)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	defer vdset.Close()
	d.Videos = make([]string, d.Labels.Rows)
	if err := vdset.Read(&d.Videos); err != nil {
		return nil, err
	}

	idset, err := f.OpenDataset(segFInitName)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	defer idset.Close()
	d.FInit = make([]int32, d.Labels.Rows)
	if err := idset.Read(&d.FInit); err != nil {
		return nil, err
	}

	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return d, nil
}

func readFloatDataset(f *hdf5.File, name string) ([]uint, []float32, error) {
	dset, err := f.OpenDataset(name)
	if err != nil {
		return nil, nil, fmt.Errorf("missing dataset %v: %w", name, err)
	}
	defer dset.Close()
	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, nil, err
	}
	count := uint(1)
	for _, d := range dims {
		count *= d
	}
	data := make([]float32, count)
	if err := dset.Read(&data); err != nil {
		return nil, nil, fmt.Errorf("failed to read dataset %v: %w", name, err)
	}
	return dims, data, nil
}
