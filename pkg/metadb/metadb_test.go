package metadb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func createTestDB(t *testing.T) *MetaDB {
	dbPath := filepath.Join(t.TempDir(), "metadata.sqlite")
	os.Remove(dbPath)
	db, err := NewMetaDB(logs.NewTestingLog(t), dbPath)
	require.NoError(t, err)
	return db
}

func TestAddAndQuery(t *testing.T) {
	db := createTestDB(t)

	require.NoError(t, db.AddVideo(&Video{Name: "v_train_0001", Duration: 120.5, FrameRate: 30, NumFrames: 3615, Subset: "training"}))
	require.NoError(t, db.AddVideo(&Video{Name: "v_val_0001", Duration: 60, FrameRate: 25, NumFrames: 1500, Subset: "validation"}))
	require.Error(t, db.AddVideo(&Video{}))

	require.NoError(t, db.AddInstances("v_train_0001", []*Instance{
		{TInit: 100, NumFrames: 250, Label: "LongJump"},
		{TInit: 900, NumFrames: 120, Label: "LongJump"},
	}))

	// Unknown video
	require.Error(t, db.AddInstances("nope", []*Instance{{TInit: 0, NumFrames: 10, Label: "x"}}))

	v, err := db.Video("v_train_0001")
	require.NoError(t, err)
	require.Equal(t, 3615, v.NumFrames)

	training, err := db.Videos("training")
	require.NoError(t, err)
	require.Len(t, training, 1)

	all, err := db.Videos("")
	require.NoError(t, err)
	require.Len(t, all, 2)

	segs, err := db.InstanceSegments("v_train_0001")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	require.Equal(t, float32(100), segs[0].Init)
	require.Equal(t, float32(349), segs[0].End)

	n, err := db.CountInstances()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestDuplicateVideoName(t *testing.T) {
	db := createTestDB(t)
	require.NoError(t, db.AddVideo(&Video{Name: "dup", Subset: "training"}))
	require.Error(t, db.AddVideo(&Video{Name: "dup", Subset: "training"}))
}

func TestCSVRoundTrip(t *testing.T) {
	db := createTestDB(t)
	metaDir := filepath.Join(t.TempDir(), "metadata")
	require.NoError(t, os.MkdirAll(metaDir, 0770))

	videosCSV := "video-name duration frame-rate num-frames subset\n" +
		"v_a 120.5 30 3615 training\n" +
		"v_b 60 25 1500 validation\n"
	instancesCSV := "video-name t-init n-frames label\n" +
		"v_a 100 250 LongJump\n" +
		"v_a 900 120 HighJump\n" +
		"v_b 10 50 LongJump\n"
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, VideosCSV), []byte(videosCSV), 0664))
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, InstancesCSV), []byte(instancesCSV), 0664))

	require.NoError(t, db.ImportCSV(metaDir))

	instances, err := db.InstancesForVideo("v_a")
	require.NoError(t, err)
	require.Len(t, instances, 2)
	require.Equal(t, "LongJump", instances[0].Label)

	// Export and re-import into a fresh DB
	outDir := filepath.Join(t.TempDir(), "metadata-out")
	require.NoError(t, db.ExportCSV(outDir))

	db2 := createTestDB(t)
	require.NoError(t, db2.ImportCSV(outDir))
	videos, err := db2.Videos("")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	v, err := db2.Video("v_a")
	require.NoError(t, err)
	require.Equal(t, 120.5, v.Duration)
	require.Equal(t, 30.0, v.FrameRate)
	n, err := db2.CountInstances()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestImportBadHeader(t *testing.T) {
	db := createTestDB(t)
	metaDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, VideosCSV),
		[]byte("video-name duration\nv_a 120.5\n"), 0664))
	require.Error(t, db.ImportCSV(metaDir))
}

func TestImportMissingInstancesIsOK(t *testing.T) {
	db := createTestDB(t)
	metaDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, VideosCSV),
		[]byte("video-name duration frame-rate num-frames subset\nv_a 10 30 300 testing\n"), 0664))
	require.NoError(t, db.ImportCSV(metaDir))
	n, err := db.CountInstances()
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
}
