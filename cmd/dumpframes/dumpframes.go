package main

import (
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/config"
	"github.com/dapslab/daps/pkg/metadb"
	"github.com/dapslab/daps/pkg/video"
)

// Dumps the frames of every video in the metadata database as JPEG images,
// one directory per video, ready for the feature extractor.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("dumpframes", "Dump the frames of all videos in the metadata database to JPEG images")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Pipeline config JSON file", Required: true})
	videoDir := parser.String("v", "videos", &argparse.Options{Help: "Directory holding the raw video files", Required: true})
	subset := parser.String("s", "subset", &argparse.Options{Help: "Restrict to one subset (training, validation, testing)"})
	workers := parser.Int("w", "workers", &argparse.Options{Help: "Videos to dump in parallel", Default: 4})
	err = parser.Parse(os.Args)
	if err != nil {
		logger.Errorf(parser.Usage(err))
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	db, err := metadb.NewMetaDB(logger, cfg.Resolve(cfg.MetaDB))
	if err != nil {
		logger.Errorf("Failed to open metadata database: %v", err)
		os.Exit(1)
	}
	videos, err := db.Videos(*subset)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if len(videos) == 0 {
		logger.Errorf("No videos to dump")
		os.Exit(1)
	}

	frameRoot := cfg.Resolve(cfg.FrameDir)
	requests := make([]video.DumpRequest, 0, len(videos))
	for _, v := range videos {
		requests = append(requests, video.DumpRequest{
			Filename: filepath.Join(*videoDir, v.Name+".mp4"),
			OutDir:   filepath.Join(frameRoot, v.Name),
		})
	}
	if err := video.DumpAll(logger, requests, *workers); err != nil {
		logger.Errorf("Frame dump failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("Dumped frames of %v videos into %v", len(videos), frameRoot)
}
