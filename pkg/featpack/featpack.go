package featpack

import (
	"fmt"

	"github.com/dapslab/daps/pkg/c3d"
	"gonum.org/v1/hdf5"
)

// Package featpack stores extracted C3D features in HDF5: one group per
// video, keyed by the video identifier, and inside each group a single
// dataset named "c3d-features" of shape [numClips x featDim] float32.

const FeatureDatasetName = "c3d-features"

// Writer creates a feature pack.
type Writer struct {
	f *hdf5.File
}

func CreateWriter(path string) (*Writer, error) {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature pack %v: %w", path, err)
	}
	return &Writer{f: f}, nil
}

// PutVideo writes the feature stack of one video.
func (w *Writer) PutVideo(name string, mat *c3d.Matrix) error {
	if mat.Rows == 0 || mat.Cols == 0 {
		return fmt.Errorf("empty feature matrix for video '%v'", name)
	}
	group, err := w.f.CreateGroup(name)
	if err != nil {
		return fmt.Errorf("failed to create group for video '%v': %w", name, err)
	}
	defer group.Close()

	dims := []uint{uint(mat.Rows), uint(mat.Cols)}
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer space.Close()

	dset, err := group.CreateDataset(FeatureDatasetName, hdf5.T_IEEE_F32LE, space)
	if err != nil {
		return fmt.Errorf("failed to create dataset for video '%v': %w", name, err)
	}
	defer dset.Close()

	if err := dset.Write(&mat.Data); err != nil {
		return fmt.Errorf("failed to write features of video '%v': %w", name, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.f.Close()
}

// Reader reads a feature pack.
type Reader struct {
	f *hdf5.File
}

func OpenReader(path string) (*Reader, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature pack %v: %w", path, err)
	}
	return &Reader{f: f}, nil
}

// Videos lists the video identifiers in the pack.
func (r *Reader) Videos() ([]string, error) {
	root, err := r.f.OpenGroup("/")
	if err != nil {
		return nil, err
	}
	defer root.Close()
	n, err := root.NumObjects()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, n)
	for i := uint(0); i < n; i++ {
		name, err := root.ObjectNameByIndex(i)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// Features reads the full [numClips x featDim] stack of one video.
func (r *Reader) Features(name string) (*c3d.Matrix, error) {
	dset, rows, cols, err := r.openVideo(name)
	if err != nil {
		return nil, err
	}
	defer dset.Close()

	mat := c3d.NewMatrix(rows, cols)
	if err := dset.Read(&mat.Data); err != nil {
		return nil, fmt.Errorf("failed to read features of video '%v': %w", name, err)
	}
	return mat, nil
}

// FeatureWindow reads numClips consecutive clip features starting at clip
// index firstClip.
func (r *Reader) FeatureWindow(name string, firstClip, numClips int) (*c3d.Matrix, error) {
	dset, rows, cols, err := r.openVideo(name)
	if err != nil {
		return nil, err
	}
	defer dset.Close()

	if firstClip < 0 || firstClip+numClips > rows {
		return nil, fmt.Errorf("clip window [%v, %v) outside of video '%v' with %v clips",
			firstClip, firstClip+numClips, name, rows)
	}

	filespace := dset.Space()
	defer filespace.Close()
	offset := []uint{uint(firstClip), 0}
	count := []uint{uint(numClips), uint(cols)}
	if err := filespace.SelectHyperslab(offset, nil, count, nil); err != nil {
		return nil, err
	}
	memspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return nil, err
	}
	defer memspace.Close()

	mat := c3d.NewMatrix(numClips, cols)
	if err := dset.ReadSubset(&mat.Data, memspace, filespace); err != nil {
		return nil, fmt.Errorf("failed to read clip window of video '%v': %w", name, err)
	}
	return mat, nil
}

// NumClips returns the number of clip features stored for a video.
func (r *Reader) NumClips(name string) (int, error) {
	dset, rows, _, err := r.openVideo(name)
	if err != nil {
		return 0, err
	}
	dset.Close()
	return rows, nil
}

func (r *Reader) openVideo(name string) (*hdf5.Dataset, int, int, error) {
	group, err := r.f.OpenGroup(name)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("video '%v' not in feature pack: %w", name, err)
	}
	defer group.Close()

	dset, err := group.OpenDataset(FeatureDatasetName)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("video '%v' has no %v dataset: %w", name, FeatureDatasetName, err)
	}
	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		dset.Close()
		return nil, 0, 0, err
	}
	if len(dims) != 2 {
		dset.Close()
		return nil, 0, 0, fmt.Errorf("video '%v': expected 2-dim features, got %v dims", name, len(dims))
	}
	return dset, int(dims[0]), int(dims[1]), nil
}

func (r *Reader) Close() error {
	return r.f.Close()
}
