package video

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dapslab/daps/pkg/shell"
)

// Package video wraps the external ffmpeg/ffprobe tools.
// Every result depends on the installed ffmpeg build.

// Duration returns the duration of the first video stream, in seconds.
func Duration(filename string) (float64, error) {
	out, err := shell.RunTrimmed("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=duration",
		"-of", "default=nokey=1:noprint_wrappers=1",
		filename)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration of %v: %w", filename, err)
	}
	d, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration of %v: unparseable %q", filename, out)
	}
	return d, nil
}

// FrameRate returns the average frame rate of the first video stream.
// ffprobe reports it as a rational such as "30000/1001".
func FrameRate(filename string) (float64, error) {
	out, err := shell.RunTrimmed("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=nokey=1:noprint_wrappers=1",
		filename)
	if err != nil {
		return 0, fmt.Errorf("ffprobe frame rate of %v: %w", filename, err)
	}
	return ParseRational(out)
}

// ParseRational parses an ffprobe rational ("num/den") or a plain float.
func ParseRational(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, fmt.Errorf("unparseable rational %q", s)
		}
		return n / d, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable rational %q", s)
	}
	return v, nil
}

// CountFrames counts the frames of a video file by decoding it, which is slow
// but exact. If filename is a directory, we instead count the dumped frame
// images inside it.
func CountFrames(filename string, ext string) (int, error) {
	if st, err := os.Stat(filename); err == nil && st.IsDir() {
		if ext == "" {
			ext = ".jpg"
		}
		matches, err := filepath.Glob(filepath.Join(filename, "*"+ext))
		if err != nil {
			return 0, err
		}
		return len(matches), nil
	}
	out, err := shell.RunTrimmed("ffprobe",
		"-v", "error",
		"-count_frames",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_read_frames",
		"-of", "default=nokey=1:noprint_wrappers=1",
		filename)
	if err != nil {
		return 0, fmt.Errorf("ffprobe frame count of %v: %w", filename, err)
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("ffprobe frame count of %v: unparseable %q", filename, out)
	}
	return n, nil
}
