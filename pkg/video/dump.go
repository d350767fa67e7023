package video

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/shell"
	"golang.org/x/sync/errgroup"
)

// FrameBasename returns the printf format used to name dumped frames.
// At least 6 digits, widened when the video has more frames than that.
func FrameBasename(numFrames int) string {
	digits := 0
	for n := numFrames; n > 0; n /= 10 {
		digits++
	}
	if digits < 6 {
		digits = 6
	}
	return fmt.Sprintf("%%0%vd.jpg", digits)
}

// DumpFrames extracts every frame of a video into outDir as JPEG images.
// basenameFormat may be empty, in which case we probe the frame count and
// pick a width with FrameBasename.
func DumpFrames(filename, outDir, basenameFormat string) error {
	if err := os.MkdirAll(outDir, 0770); err != nil {
		return fmt.Errorf("failed to create frame dir '%v': %w", outDir, err)
	}
	if basenameFormat == "" {
		numFrames, err := CountFrames(filename, "")
		if err != nil {
			return err
		}
		basenameFormat = FrameBasename(numFrames)
	}
	outFormat := filepath.Join(outDir, basenameFormat)
	_, err := shell.Run("ffmpeg",
		"-v", "error",
		"-i", filename,
		"-qscale:v", "2",
		"-f", "image2",
		outFormat)
	if err != nil {
		return fmt.Errorf("ffmpeg frame dump of %v: %w", filename, err)
	}
	return nil
}

// DumpRequest is one video to dump.
type DumpRequest struct {
	Filename string // Full path of the video file
	OutDir   string // Directory that receives the frame images
}

// DumpAll dumps frames for a batch of videos, 'workers' videos at a time.
// The first failure cancels the remaining work.
func DumpAll(log logs.Log, requests []DumpRequest, workers int) error {
	if workers < 1 {
		workers = 1
	}
	g := errgroup.Group{}
	g.SetLimit(workers)
	for _, req := range requests {
		g.Go(func() error {
			log.Infof("Dumping frames of %v into %v", req.Filename, req.OutDir)
			return DumpFrames(req.Filename, req.OutDir, "")
		})
	}
	return g.Wait()
}
