package priors

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/cyclopcam/logs"
	"gonum.org/v1/gonum/floats"
)

// SampleUniformGroups resamples indices of x so that the distribution over
// the given bin edges is as uniform as possible. With strict=true every bin
// contributes exactly the size of the smallest non-empty bin; otherwise bins
// may keep a few more, up to the bin population.
func SampleUniformGroups(x []float64, binEdges []float64, strict bool, rng *rand.Rand) []int {
	nBins := len(binEdges) - 1
	if nBins < 1 {
		return nil
	}
	binOf := func(v float64) int {
		// Index of the bin containing v; values outside the edges are dropped
		i := sort.SearchFloat64s(binEdges, v)
		if i == 0 || v > binEdges[nBins] {
			return -1
		}
		return i - 1
	}
	bins := make([][]int, nBins)
	for i, v := range x {
		b := binOf(v)
		if b >= 0 {
			bins[b] = append(bins[b], i)
		}
	}

	minCount := -1
	for _, b := range bins {
		if len(b) == 0 {
			continue
		}
		if minCount < 0 || len(b) < minCount {
			minCount = len(b)
		}
	}
	if minCount < 0 {
		return nil
	}

	keep := []int{}
	for _, b := range bins {
		take := minCount
		if !strict {
			// Allow some slack above the minimum
			take = minCount + rng.Intn(minCount+1)
			if take > len(b) {
				take = len(b)
			}
		}
		if take > len(b) {
			take = len(b)
		}
		perm := rng.Perm(len(b))
		for _, j := range perm[:take] {
			keep = append(keep, b[j])
		}
	}
	sort.Ints(keep)
	return keep
}

// GenerateOptions control prior clustering.
type GenerateOptions struct {
	T            int   // Window length in frames
	K            int   // Number of anchors
	Seed         int64 // RNG seed (sampling, init, tie-breaking)
	DurationBins int   // Bins used to balance annotation durations (default 10)
	MaxIters     int   // K-means iteration cap (default 100)
}

// Generate clusters unit-scaled [center, duration] annotation samples into K
// anchors with Lloyd's algorithm. Deterministic for a fixed seed.
func Generate(log logs.Log, samples [][2]float32, opts GenerateOptions) (*Priors, error) {
	if opts.K <= 0 {
		return nil, fmt.Errorf("need K > 0")
	}
	if len(samples) < opts.K {
		return nil, fmt.Errorf("only %v annotation samples for %v priors", len(samples), opts.K)
	}
	if opts.DurationBins <= 0 {
		opts.DurationBins = 10
	}
	if opts.MaxIters <= 0 {
		opts.MaxIters = 100
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	// Balance the duration distribution so that short actions don't dominate
	// the clustering.
	durations := make([]float64, len(samples))
	for i, s := range samples {
		durations[i] = float64(s[1])
	}
	edges := make([]float64, opts.DurationBins+1)
	floats.Span(edges, 0, 1)
	keep := SampleUniformGroups(durations, edges, false, rng)
	if len(keep) < opts.K {
		// Balancing was too aggressive for this little data; use everything
		keep = keep[:0]
		for i := range samples {
			keep = append(keep, i)
		}
	}

	points := make([][2]float64, len(keep))
	for i, j := range keep {
		points[i] = [2]float64{float64(samples[j][0]), float64(samples[j][1])}
	}

	centroids := kmeans(points, opts.K, opts.MaxIters, rng)

	// Sort anchors by duration then center, so prior indices are stable
	sort.Slice(centroids, func(a, b int) bool {
		if centroids[a][1] != centroids[b][1] {
			return centroids[a][1] < centroids[b][1]
		}
		return centroids[a][0] < centroids[b][0]
	})

	p := &Priors{
		T:       opts.T,
		K:       opts.K,
		Seed:    opts.Seed,
		Anchors: make([][2]float32, opts.K),
	}
	for i, c := range centroids {
		p.Anchors[i] = [2]float32{float32(c[0]), float32(c[1])}
	}
	log.Infof("Generated %v priors from %v/%v annotation samples", opts.K, len(keep), len(samples))
	return p, nil
}

func kmeans(points [][2]float64, k, maxIters int, rng *rand.Rand) [][2]float64 {
	// Init with k distinct random points
	perm := rng.Perm(len(points))
	centroids := make([][2]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = points[perm[i]]
	}

	assign := make([]int, len(points))
	for iter := 0; iter < maxIters; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, floats.Distance(p[:], centroids[0][:], 2)
			for c := 1; c < k; c++ {
				if d := floats.Distance(p[:], centroids[c][:], 2); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			sums[assign[i]][0] += p[0]
			sums[assign[i]][1] += p[1]
			counts[assign[i]]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Re-seed an empty cluster with a random point
				centroids[c] = points[rng.Intn(len(points))]
				continue
			}
			centroids[c][0] = sums[c][0] / float64(counts[c])
			centroids[c][1] = sums[c][1] / float64(counts[c])
		}
	}
	return centroids
}
