package c3d

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cyclopcam/logs"
)

// InputFileOptions control clip enumeration for the C3D input list.
type InputFileOptions struct {
	TSize        int    // Temporal receptive field of the network
	StepSize     int    // Stride between clip starts
	OutputFolder string // When set, also produce the output-prefix list rooted here
	Mkdir        bool   // Create the per-video output folders
}

func NewInputFileOptions() InputFileOptions {
	return InputFileOptions{
		TSize:    DefaultTSize,
		StepSize: DefaultStepSize,
		Mkdir:    true,
	}
}

// Summary reports what GenerateInputFiles did.
type Summary struct {
	PctSkippedSegments float64 // Fraction of segments shorter than TSize
	ClipsPerSegment    float64 // Ratio of emitted clips over input segments
	NumClips           int
	OutputListFile     string // The output-prefix list, when one was written
}

type inputSegment struct {
	video    string
	numFrame int
	iFrame   int
	duration int
	label    int
}

// GenerateInputFiles reads a segment CSV (space separated, header with
// columns video-name, num-frame, i-frame, duration and optional label) and
// writes the input list consumed by the external C3D extractor: one line per
// clip, "video-name start-frame label". When opts.OutputFolder is set, a
// matching output-prefix list ("folder/video/start") is written to
// outputPrefixFile, and the per-video folders are created.
func GenerateInputFiles(log logs.Log, segmentCSV, inputListFile, outputPrefixFile string, opts InputFileOptions) (*Summary, error) {
	if opts.TSize <= 0 {
		opts.TSize = DefaultTSize
	}
	if opts.StepSize <= 0 {
		opts.StepSize = DefaultStepSize
	}

	segments, err := readSegmentCSV(segmentCSV)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments in %v", segmentCSV)
	}

	type clip struct {
		video string
		start int
		label int
	}
	clips := []clip{}
	seen := map[string]bool{}
	skipped := 0
	for _, seg := range segments {
		if seg.duration < opts.TSize {
			skipped++
			continue
		}
		nClips := (seg.duration-opts.TSize)/opts.StepSize + 1
		for k := 0; k < nClips; k++ {
			c := clip{
				video: seg.video,
				start: seg.iFrame + k*opts.StepSize,
				label: seg.label,
			}
			key := fmt.Sprintf("%v %v %v", c.video, c.start, c.label)
			if seen[key] {
				continue
			}
			seen[key] = true
			clips = append(clips, c)
		}
	}

	f, err := os.Create(inputListFile)
	if err != nil {
		return nil, fmt.Errorf("unable to create input list for C3D (%v): %w", inputListFile, err)
	}
	w := bufio.NewWriter(f)
	for _, c := range clips {
		fmt.Fprintf(w, "%v %v %v\n", c.video, c.start, c.label)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	summary := &Summary{
		PctSkippedSegments: float64(skipped) / float64(len(segments)),
		ClipsPerSegment:    float64(len(clips)) / float64(len(segments)),
		NumClips:           len(clips),
	}

	if outputPrefixFile != "" && opts.OutputFolder != "" {
		fo, err := os.Create(outputPrefixFile)
		if err != nil {
			return nil, fmt.Errorf("unable to create output list for C3D (%v): %w", outputPrefixFile, err)
		}
		wo := bufio.NewWriter(fo)
		seenOut := map[string]bool{}
		for _, c := range clips {
			out := filepath.Clean(filepath.Join(opts.OutputFolder, c.video, strconv.Itoa(c.start)))
			if seenOut[out] {
				continue
			}
			seenOut[out] = true
			fmt.Fprintln(wo, out)
		}
		if err := wo.Flush(); err != nil {
			fo.Close()
			return nil, err
		}
		if err := fo.Close(); err != nil {
			return nil, err
		}
		summary.OutputListFile = outputPrefixFile

		if opts.Mkdir {
			videos := map[string]bool{}
			for _, seg := range segments {
				videos[seg.video] = true
			}
			for v := range videos {
				if err := os.MkdirAll(filepath.Join(opts.OutputFolder, v), 0770); err != nil {
					return nil, fmt.Errorf("failed to create C3D output folder for '%v': %w", v, err)
				}
			}
		}
	}

	log.Infof("C3D input list %v: %v clips from %v segments (%.1f%% segments skipped)",
		inputListFile, len(clips), len(segments), 100*summary.PctSkippedSegments)
	return summary, nil
}

func readSegmentCSV(filename string) ([]inputSegment, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open file %v: %w", filename, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("%v: empty file", filename)
	}
	cols := strings.Fields(scanner.Text())
	idx := map[string]int{}
	for i, c := range cols {
		idx[c] = i
	}
	for _, req := range []string{"video-name", "num-frame", "i-frame", "duration"} {
		if _, ok := idx[req]; !ok {
			return nil, fmt.Errorf("not enough information or incorrect format in %v: missing column %v", filename, req)
		}
	}
	hasLabel := false
	if _, ok := idx["label"]; ok {
		hasLabel = true
	}

	segments := []inputSegment{}
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < len(cols) {
			return nil, fmt.Errorf("%v:%v: expected %v columns, got %v", filename, line, len(cols), len(fields))
		}
		seg := inputSegment{video: fields[idx["video-name"]]}
		var err1, err2, err3 error
		seg.numFrame, err1 = strconv.Atoi(fields[idx["num-frame"]])
		seg.iFrame, err2 = strconv.Atoi(fields[idx["i-frame"]])
		seg.duration, err3 = strconv.Atoi(fields[idx["duration"]])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("%v:%v: bad numeric field", filename, line)
		}
		if hasLabel {
			seg.label, _ = strconv.Atoi(fields[idx["label"]])
		}
		segments = append(segments, seg)
	}
	return segments, scanner.Err()
}
