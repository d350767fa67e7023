package metadb

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// The metadata folder convention: space-separated CSV files with a header
// line, one row per video / per action instance.
const (
	VideosCSV    = "videos.csv"
	InstancesCSV = "instances.csv"
)

var videosHeader = []string{"video-name", "duration", "frame-rate", "num-frames", "subset"}
var instancesHeader = []string{"video-name", "t-init", "n-frames", "label"}

// ImportCSV loads the metadata folder of a dataset root into the DB.
func (m *MetaDB) ImportCSV(metadataDir string) error {
	if err := m.importVideos(filepath.Join(metadataDir, VideosCSV)); err != nil {
		return err
	}
	if err := m.importInstances(filepath.Join(metadataDir, InstancesCSV)); err != nil {
		return err
	}
	nVideos := int64(0)
	m.DB.Model(&Video{}).Count(&nVideos)
	nInstances, _ := m.CountInstances()
	m.Log.Infof("Imported %v videos, %v instances from %v", nVideos, nInstances, metadataDir)
	return nil
}

func (m *MetaDB) importVideos(filename string) error {
	rows, err := readSpaceCSV(filename, videosHeader)
	if err != nil {
		return err
	}
	for _, row := range rows {
		duration, err1 := strconv.ParseFloat(row[1], 64)
		frameRate, err2 := strconv.ParseFloat(row[2], 64)
		numFrames, err3 := strconv.Atoi(row[3])
		if err1 != nil || err2 != nil || err3 != nil {
			return fmt.Errorf("%v: bad row for video '%v'", filename, row[0])
		}
		v := &Video{
			Name:      row[0],
			Duration:  duration,
			FrameRate: frameRate,
			NumFrames: numFrames,
			Subset:    row[4],
		}
		if err := m.AddVideo(v); err != nil {
			return fmt.Errorf("%v: %w", filename, err)
		}
	}
	return nil
}

func (m *MetaDB) importInstances(filename string) error {
	rows, err := readSpaceCSV(filename, instancesHeader)
	if err != nil {
		if os.IsNotExist(err) {
			// A test-only dataset has no annotations
			m.Log.Warnf("No instance annotations at %v", filename)
			return nil
		}
		return err
	}
	// Group rows by video so we do one Video() lookup per video
	byVideo := map[string][]*Instance{}
	order := []string{}
	for _, row := range rows {
		tInit, err1 := strconv.Atoi(row[1])
		nFrames, err2 := strconv.Atoi(row[2])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("%v: bad row for video '%v'", filename, row[0])
		}
		if _, seen := byVideo[row[0]]; !seen {
			order = append(order, row[0])
		}
		byVideo[row[0]] = append(byVideo[row[0]], &Instance{
			TInit:     tInit,
			NumFrames: nFrames,
			Label:     row[3],
		})
	}
	for _, name := range order {
		if err := m.AddInstances(name, byVideo[name]); err != nil {
			return fmt.Errorf("%v: %w", filename, err)
		}
	}
	return nil
}

// ExportCSV writes the DB contents back out as the metadata folder files.
// Writes go to a temp file first, then rename.
func (m *MetaDB) ExportCSV(metadataDir string) error {
	if err := os.MkdirAll(metadataDir, 0770); err != nil {
		return fmt.Errorf("failed to create metadata dir '%v': %w", metadataDir, err)
	}
	videos, err := m.Videos("")
	if err != nil {
		return err
	}

	videoRows := [][]string{}
	instanceRows := [][]string{}
	for _, v := range videos {
		videoRows = append(videoRows, []string{
			v.Name,
			strconv.FormatFloat(v.Duration, 'f', -1, 64),
			strconv.FormatFloat(v.FrameRate, 'f', -1, 64),
			strconv.Itoa(v.NumFrames),
			v.Subset,
		})
		instances, err := m.InstancesForVideo(v.Name)
		if err != nil {
			return err
		}
		for _, ins := range instances {
			instanceRows = append(instanceRows, []string{
				v.Name,
				strconv.Itoa(ins.TInit),
				strconv.Itoa(ins.NumFrames),
				ins.Label,
			})
		}
	}

	if err := writeSpaceCSV(filepath.Join(metadataDir, VideosCSV), videosHeader, videoRows); err != nil {
		return err
	}
	return writeSpaceCSV(filepath.Join(metadataDir, InstancesCSV), instancesHeader, instanceRows)
}

func readSpaceCSV(filename string, header []string) ([][]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("%v: empty file", filename)
	}
	got := strings.Fields(scanner.Text())
	if !headerCovers(got, header) {
		return nil, fmt.Errorf("%v: not enough information or incorrect format (header %v, need %v)", filename, got, header)
	}
	// Map our required columns onto whatever order the file has
	colIdx := make([]int, len(header))
	for i, want := range header {
		for j, have := range got {
			if have == want {
				colIdx[i] = j
			}
		}
	}

	rows := [][]string{}
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < len(got) {
			return nil, fmt.Errorf("%v:%v: expected %v columns, got %v", filename, line, len(got), len(fields))
		}
		row := make([]string, len(header))
		for i, j := range colIdx {
			row[i] = fields[j]
		}
		rows = append(rows, row)
	}
	return rows, scanner.Err()
}

func headerCovers(got, want []string) bool {
	have := map[string]bool{}
	for _, c := range got {
		have[c] = true
	}
	for _, c := range want {
		if !have[c] {
			return false
		}
	}
	return true
}

func writeSpaceCSV(filename string, header []string, rows [][]string) error {
	tmp := filename + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, strings.Join(header, " "))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, " "))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filename)
}
