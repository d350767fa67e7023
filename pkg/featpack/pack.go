package featpack

import (
	"path/filepath"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/c3d"
	"golang.org/x/sync/errgroup"
)

// PackOptions control how raw C3D blobs are packed.
type PackOptions struct {
	LayerExt string // Blob extension, eg ".fc7-1"
	PoolSpec string // Optional c3d.Pool spec applied to each video's stack
	Workers  int    // Parallel blob-stacking workers
}

// PackDataset stacks the raw C3D blobs of every video (one folder per video
// under blobRoot) and writes them into a feature pack at packPath.
// Stacking is parallel; the HDF5 library is not thread safe, so writes are
// serialized.
func PackDataset(log logs.Log, blobRoot string, videos []string, packPath string, opts PackOptions) error {
	writer, err := CreateWriter(packPath)
	if err != nil {
		return err
	}
	defer writer.Close()

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	writeLock := sync.Mutex{}
	g := errgroup.Group{}
	g.SetLimit(workers)
	for _, video := range videos {
		g.Go(func() error {
			mat, err := c3d.StackFeatures(filepath.Join(blobRoot, video), nil, opts.LayerExt)
			if err != nil {
				return err
			}
			if opts.PoolSpec != "" {
				if mat, err = c3d.Pool(mat, opts.PoolSpec); err != nil {
					return err
				}
			}
			writeLock.Lock()
			defer writeLock.Unlock()
			if err := writer.PutVideo(video, mat); err != nil {
				return err
			}
			log.Infof("Packed %v: %v clips x %v dims", video, mat.Rows, mat.Cols)
			return nil
		})
	}
	return g.Wait()
}
