package dataset

import (
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/c3d"
	"github.com/dapslab/daps/pkg/featpack"
	"github.com/dapslab/daps/pkg/metadb"
	"github.com/dapslab/daps/pkg/priors"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		WindowLength: 32,
		WindowStride: 16,
		TSize:        16,
		TStride:      8,
		PositiveIoU:  0.5,
	}
}

func testPriors() *priors.Priors {
	return &priors.Priors{
		T: 32,
		K: 2,
		Anchors: [][2]float32{
			{16.0 / 31.0, 1.0}, // whole window
			{0.25, 0.25},       // short anchor early in the window
		},
	}
}

func setup(t *testing.T) (*metadb.MetaDB, *featpack.Reader) {
	t.Helper()
	dir := t.TempDir()

	db, err := metadb.NewMetaDB(logs.NewTestingLog(t), filepath.Join(dir, "metadata.sqlite"))
	require.NoError(t, err)
	require.NoError(t, db.AddVideo(&metadb.Video{Name: "v_a", Duration: 2.1, FrameRate: 30, NumFrames: 64, Subset: "training"}))
	require.NoError(t, db.AddVideo(&metadb.Video{Name: "v_short", Duration: 0.5, FrameRate: 30, NumFrames: 16, Subset: "training"}))
	// One action covering frames 0..31, ie exactly the first window
	require.NoError(t, db.AddInstances("v_a", []*metadb.Instance{{TInit: 0, NumFrames: 32, Label: "LongJump"}}))

	packPath := filepath.Join(dir, "pack.hdf5")
	w, err := featpack.CreateWriter(packPath)
	require.NoError(t, err)
	// 7 clips of dim 4: clip i is filled with the value i
	mat := c3d.NewMatrix(7, 4)
	for r := 0; r < 7; r++ {
		for c := 0; c < 4; c++ {
			mat.Set(r, c, float32(r))
		}
	}
	require.NoError(t, w.PutVideo("v_a", mat))
	require.NoError(t, w.PutVideo("v_short", c3d.NewMatrix(1, 4)))
	require.NoError(t, w.Close())

	r, err := featpack.OpenReader(packPath)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return db, r
}

func TestBuild(t *testing.T) {
	db, feats := setup(t)
	log := logs.NewTestingLog(t)

	b, err := NewBuilder(log, db, feats, testPriors(), testOptions())
	require.NoError(t, err)

	ds, err := b.Build("training")
	require.NoError(t, err)

	// v_a (64 frames, T 32, stride 16) yields windows at 0, 16, 32.
	// v_short is skipped.
	require.Equal(t, 3, ds.NumWindows())
	require.Equal(t, 3, ds.Te)
	require.Equal(t, 4, ds.FeatDim)
	require.Equal(t, []string{"v_a", "v_a", "v_a"}, ds.Videos)
	require.Equal(t, []int32{0, 16, 32}, ds.FInit)

	// Window 0: the whole-window anchor matches the instance exactly
	require.Equal(t, float32(1), ds.Labels.At(0, 0))
	// Window 2 (frames 32..63) has no overlap with the instance
	require.Equal(t, float32(0), ds.Labels.At(2, 0))
	require.Equal(t, float32(0), ds.Labels.At(2, 1))

	// Features of window 1 start at clip 2
	require.Equal(t, float32(2), ds.Window(1).At(0, 0))

	// Unknown subset
	_, err = b.Build("testing")
	require.Error(t, err)
}

func TestOptionsValidation(t *testing.T) {
	db, feats := setup(t)
	log := logs.NewTestingLog(t)

	bad := testOptions()
	bad.WindowStride = 10 // not a multiple of TStride
	_, err := NewBuilder(log, db, feats, testPriors(), bad)
	require.Error(t, err)

	bad = testOptions()
	bad.WindowLength = 30 // misaligned with clip geometry
	_, err = NewBuilder(log, db, feats, testPriors(), bad)
	require.Error(t, err)

	// Priors computed for a different T
	p := testPriors()
	p.T = 64
	_, err = NewBuilder(log, db, feats, p, testOptions())
	require.Error(t, err)
}

func TestBalanceLabels(t *testing.T) {
	labels := c3d.NewMatrix(2, 4)
	// 2 positives, 6 negatives
	labels.Set(0, 0, 1)
	labels.Set(1, 3, 1)

	wPos, wNeg := BalanceLabels(labels, 1)
	require.Equal(t, float32(1), wPos)
	require.InDelta(t, 2.0/6.0, wNeg, 1e-6)

	// All ones: positives dominate
	for i := range labels.Data {
		labels.Data[i] = 1
	}
	wPos, wNeg = BalanceLabels(labels, 1)
	require.Equal(t, float32(1), wNeg)
	require.Equal(t, float32(0), wPos)

	// Balanced
	for i := range labels.Data {
		labels.Data[i] = 0
	}
	labels.Set(0, 0, 1)
	labels.Set(0, 1, 1)
	labels.Set(0, 2, 1)
	labels.Set(0, 3, 1)
	wPos, wNeg = BalanceLabels(labels, 1)
	require.Equal(t, float32(1), wPos)
	require.Equal(t, float32(1), wNeg)
}
