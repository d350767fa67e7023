package c3d

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestBlobCodec(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "8.fc7-1")

	dims := BlobDims{1, 6, 1, 1, 1}
	data := []float32{0, 1, 2, 3, 4, 5}
	require.NoError(t, WriteBlob(fn, dims, data))

	gotDims, got, err := ReadBlob(fn)
	require.NoError(t, err)
	require.Equal(t, dims, gotDims)
	require.Equal(t, data, got)

	// Payload size mismatch is rejected at write time
	require.Error(t, WriteBlob(fn, dims, data[:3]))

	// Truncated file
	raw, err := os.ReadFile(fn)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fn, raw[:len(raw)-5], 0664))
	_, _, err = ReadBlob(fn)
	require.ErrorIs(t, err, ErrShortBlob)

	// Garbage header
	require.NoError(t, os.WriteFile(fn, []byte{1, 2, 3}, 0664))
	_, _, err = ReadBlob(fn)
	require.Error(t, err)
}

func writeClipBlob(t *testing.T, dir string, start int, values []float32) {
	t.Helper()
	fn := filepath.Join(dir, strconv.Itoa(start)+DefaultLayerExt)
	dims := BlobDims{1, int32(len(values)), 1, 1, 1}
	require.NoError(t, WriteBlob(fn, dims, values))
}

func TestStackFeaturesNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	// Clip starts 0, 8, 16, ... 80: lexicographic order would put "16" before "8"
	for i := 0; i < 11; i++ {
		start := i * 8
		writeClipBlob(t, dir, start, []float32{float32(i), float32(i), float32(i), float32(i)})
	}

	mat, err := StackFeatures(dir, nil, "")
	require.NoError(t, err)
	require.Equal(t, 11, mat.Rows)
	require.Equal(t, 4, mat.Cols)
	for i := 0; i < 11; i++ {
		require.Equal(t, float32(i), mat.At(i, 0))
	}

	// Explicit file list
	mat, err = StackFeatures(dir, []string{"16", "0"}, "")
	require.NoError(t, err)
	require.Equal(t, 2, mat.Rows)
	require.Equal(t, float32(2), mat.At(0, 0))
	require.Equal(t, float32(0), mat.At(1, 0))

	_, err = StackFeatures(filepath.Join(dir, "missing"), nil, "")
	require.Error(t, err)
}

func TestPooling(t *testing.T) {
	m := NewMatrix(4, 2)
	for r := 0; r < 4; r++ {
		m.Set(r, 0, float32(r))
		m.Set(r, 1, float32(-r))
	}

	mean, err := Pool(m, "mean")
	require.NoError(t, err)
	require.Equal(t, 1, mean.Rows)
	require.InDelta(t, 1.5, mean.At(0, 0), 1e-6)
	require.InDelta(t, -1.5, mean.At(0, 1), 1e-6)

	mx, err := Pool(m, "max")
	require.NoError(t, err)
	require.InDelta(t, 3.0, mx.At(0, 0), 1e-6)
	require.InDelta(t, 0.0, mx.At(0, 1), 1e-6)

	// Pyramid with 1 level: 3 chunks of d=2, each L2 normalized
	pyr, err := Pool(m, "pyr:1,mean")
	require.NoError(t, err)
	require.Equal(t, 1, pyr.Rows)
	require.Equal(t, 6, pyr.Cols)
	for chunk := 0; chunk < 3; chunk++ {
		norm := pyr.At(0, chunk*2)*pyr.At(0, chunk*2) + pyr.At(0, chunk*2+1)*pyr.At(0, chunk*2+1)
		require.InDelta(t, 1.0, norm, 1e-5)
	}

	cc, err := Pool(m, "concat:2,max")
	require.NoError(t, err)
	require.Equal(t, 4, cc.Cols)

	dim, err := PooledDim(2, "pyr:1,mean")
	require.NoError(t, err)
	require.Equal(t, 6, dim)
	dim, err = PooledDim(2, "concat:2,max")
	require.NoError(t, err)
	require.Equal(t, 4, dim)

	_, err = Pool(m, "median")
	require.Error(t, err)
	_, err = Pool(m, "pyr:x,mean")
	require.Error(t, err)
}

func TestNaturalLess(t *testing.T) {
	require.True(t, naturalLess("9.fc7-1", "10.fc7-1"))
	require.True(t, naturalLess("8", "80"))
	require.False(t, naturalLess("100", "99"))
	require.True(t, naturalLess("a2", "a10"))
	require.True(t, naturalLess("", "a"))
}

func TestGenerateInputFiles(t *testing.T) {
	dir := t.TempDir()
	segCSV := filepath.Join(dir, "segments.csv")
	csv := "video-name num-frame i-frame duration label\n" +
		"v_a 3615 0 32 1\n" + // 3 clips at t_size 16 step 8: starts 0, 8, 16
		"v_a 3615 0 32 1\n" + // duplicate rows produce no duplicate clips
		"v_b 1500 100 16 2\n" + // exactly one clip
		"v_b 1500 0 10 2\n" // too short, skipped
	require.NoError(t, os.WriteFile(segCSV, []byte(csv), 0664))

	inputList := filepath.Join(dir, "input.txt")
	outputList := filepath.Join(dir, "output.txt")
	outFolder := filepath.Join(dir, "features")

	opts := NewInputFileOptions()
	opts.OutputFolder = outFolder
	summary, err := GenerateInputFiles(logs.NewTestingLog(t), segCSV, inputList, outputList, opts)
	require.NoError(t, err)
	require.Equal(t, 4, summary.NumClips)
	require.InDelta(t, 0.25, summary.PctSkippedSegments, 1e-9)
	require.Equal(t, outputList, summary.OutputListFile)

	raw, err := os.ReadFile(inputList)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Equal(t, []string{
		"v_a 0 1",
		"v_a 8 1",
		"v_a 16 1",
		"v_b 100 2",
	}, lines)

	rawOut, err := os.ReadFile(outputList)
	require.NoError(t, err)
	outLines := strings.Split(strings.TrimSpace(string(rawOut)), "\n")
	require.Len(t, outLines, 4)
	require.Equal(t, filepath.Join(outFolder, "v_a", "0"), outLines[0])

	// Per-video output folders created, including for the skipped segment's video
	st, err := os.Stat(filepath.Join(outFolder, "v_a"))
	require.NoError(t, err)
	require.True(t, st.IsDir())
	st, err = os.Stat(filepath.Join(outFolder, "v_b"))
	require.NoError(t, err)
	require.True(t, st.IsDir())

	// Missing required column
	badCSV := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badCSV, []byte("video-name i-frame\nv 0\n"), 0664))
	_, err = GenerateInputFiles(logs.NewTestingLog(t), badCSV, inputList, "", NewInputFileOptions())
	require.Error(t, err)
}

func TestExtractionCommand(t *testing.T) {
	argv, err := ExtractionCommand("", "model.caffemodel", "output.txt", "fc7-1", ExtractorConfig{
		SeqSource: "input.txt",
		MeanFile:  "mean.binaryproto",
		BatchSize: 32,
		UseImage:  true,
	})
	require.NoError(t, err)
	require.Equal(t, "extract_image_features.bin", argv[0])
	require.Contains(t, argv[5], `"seq_source":"input.txt"`)
	require.Contains(t, argv[5], `"batch_size":32`)
	require.Contains(t, argv[5], `"use_image":true`)
	require.Contains(t, argv[5], `"mean_file":"mean.binaryproto"`)
}
