package c3d

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

// StackFeatures reads the per-clip blobs of one video and stacks them into a
// [numClips x featDim] matrix. 'files' is an optional list of clip basenames
// (without the layer extension, typically the clip start frames); when nil we
// stack every blob with the layer extension in the directory, in natural
// order, so "100" sorts after "32".
func StackFeatures(dirname string, files []string, layerExt string) (*Matrix, error) {
	if layerExt == "" {
		layerExt = DefaultLayerExt
	}
	if _, err := os.Stat(dirname); err != nil {
		return nil, fmt.Errorf("unexistent folder %v: %w", dirname, err)
	}

	var blobFiles []string
	if files != nil {
		blobFiles = make([]string, len(files))
		for i, v := range files {
			blobFiles[i] = filepath.Join(dirname, v+layerExt)
		}
	} else {
		matches, err := filepath.Glob(filepath.Join(dirname, "*"+layerExt))
		if err != nil {
			return nil, err
		}
		blobFiles = matches
		sort.Slice(blobFiles, func(a, b int) bool {
			return naturalLess(filepath.Base(blobFiles[a]), filepath.Base(blobFiles[b]))
		})
	}
	if len(blobFiles) == 0 {
		return nil, fmt.Errorf("no '%v' blobs in %v", layerExt, dirname)
	}

	dims, first, err := ReadBlob(blobFiles[0])
	if err != nil {
		return nil, err
	}
	featDim := dims.Count()
	mat := NewMatrix(len(blobFiles), featDim)
	copy(mat.Row(0), first)

	for i := 1; i < len(blobFiles); i++ {
		d, data, err := ReadBlob(blobFiles[i])
		if err != nil {
			return nil, err
		}
		if d.Count() != featDim {
			return nil, fmt.Errorf("%v: feature dim %v, expected %v", blobFiles[i], d.Count(), featDim)
		}
		copy(mat.Row(i), data)
	}
	return mat, nil
}

// Pool reduces a [m x d] feature stack according to a pooling spec:
//
//	""             no pooling, return the input
//	"mean", "max"  global pooling to [1 x d]
//	"pyr:L,mean"   temporal pyramid with L levels, [1 x d*(2^(L+1)-1)]
//	"concat:N,max" N equal chunks pooled and concatenated, [1 x d*N]
func Pool(m *Matrix, spec string) (*Matrix, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch {
	case spec == "":
		return m, nil
	case spec == "mean" || spec == "max":
		out := NewMatrix(1, m.Cols)
		poolChunk(m, 0, m.Rows, spec, out.Row(0))
		return out, nil
	case strings.HasPrefix(spec, "pyr:"):
		levels, poolType, err := parsePoolArgs(spec)
		if err != nil {
			return nil, err
		}
		return pyramidPool(m, levels, poolType), nil
	case strings.HasPrefix(spec, "concat:"):
		n, poolType, err := parsePoolArgs(spec)
		if err != nil {
			return nil, err
		}
		return concatPool(m, n, poolType), nil
	}
	return nil, fmt.Errorf("unknown pool_type: %v", spec)
}

// PooledDim returns the output feature dimension of Pool for a given input
// dimension, without touching any data.
func PooledDim(featDim int, spec string) (int, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch {
	case spec == "":
		return featDim, nil
	case spec == "mean" || spec == "max":
		return featDim, nil
	case strings.HasPrefix(spec, "pyr:"):
		levels, _, err := parsePoolArgs(spec)
		if err != nil {
			return 0, err
		}
		return featDim * (1<<(levels+1) - 1), nil
	case strings.HasPrefix(spec, "concat:"):
		n, _, err := parsePoolArgs(spec)
		if err != nil {
			return 0, err
		}
		return featDim * n, nil
	}
	return 0, fmt.Errorf("unknown pool_type: %v", spec)
}

func parsePoolArgs(spec string) (int, string, error) {
	_, args, _ := strings.Cut(spec, ":")
	numStr, poolType, ok := strings.Cut(args, ",")
	if !ok {
		return 0, "", fmt.Errorf("bad pool spec %q", spec)
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, "", fmt.Errorf("bad pool spec %q", spec)
	}
	if poolType != "mean" && poolType != "max" {
		return 0, "", fmt.Errorf("unknown pooling type %q", poolType)
	}
	return n, poolType, nil
}

// poolChunk pools rows [lo, hi) of m into out, which must be m.Cols long.
func poolChunk(m *Matrix, lo, hi int, poolType string, out []float32) {
	if hi <= lo {
		// Degenerate chunk from rounding; leave zeros
		return
	}
	copy(out, m.Row(lo))
	for r := lo + 1; r < hi; r++ {
		row := m.Row(r)
		if poolType == "max" {
			for c := range out {
				out[c] = math32.Max(out[c], row[c])
			}
		} else {
			for c := range out {
				out[c] += row[c]
			}
		}
	}
	if poolType == "mean" {
		inv := 1 / float32(hi-lo)
		for c := range out {
			out[c] *= inv
		}
	}
}

func l2normalize(x []float32) {
	sum := float32(0)
	for _, v := range x {
		sum += v * v
	}
	norm := math32.Sqrt(sum)
	if norm == 0 {
		return
	}
	inv := 1 / norm
	for i := range x {
		x[i] *= inv
	}
}

// pyramidPool is a 1-D temporal pyramid: level i splits the rows into 2^i
// chunks, each chunk is pooled and L2-normalized, and all chunks across all
// levels are concatenated.
func pyramidPool(m *Matrix, levels int, poolType string) *Matrix {
	nChunks := 1<<(levels+1) - 1
	out := NewMatrix(1, m.Cols*nChunks)
	idx := 0
	for level := 0; level <= levels; level++ {
		n := 1 << level
		for j := 0; j < n; j++ {
			lo := (j * m.Rows) / n
			hi := ((j + 1) * m.Rows) / n
			chunk := out.Data[idx*m.Cols : (idx+1)*m.Cols]
			poolChunk(m, lo, hi, poolType, chunk)
			l2normalize(chunk)
			idx++
		}
	}
	return out
}

// concatPool splits the rows into n equal chunks, pools each and
// concatenates, with per-chunk L2 normalization.
func concatPool(m *Matrix, n int, poolType string) *Matrix {
	out := NewMatrix(1, m.Cols*n)
	for j := 0; j < n; j++ {
		lo := (j * m.Rows) / n
		hi := ((j + 1) * m.Rows) / n
		chunk := out.Data[j*m.Cols : (j+1)*m.Cols]
		poolChunk(m, lo, hi, poolType, chunk)
		l2normalize(chunk)
	}
	return out
}

// naturalLess compares strings so that embedded numbers sort numerically:
// "9.fc7-1" < "10.fc7-1".
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, ra := leadingInt(a)
			nb, rb := leadingInt(b)
			if na != nb {
				return na < nb
			}
			a, b = ra, rb
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func leadingInt(s string) (int64, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	n, _ := strconv.ParseInt(s[:i], 10, 64)
	return n, s[i:]
}
