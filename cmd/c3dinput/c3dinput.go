package main

import (
	"os"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/c3d"
	"github.com/dapslab/daps/pkg/config"
)

// Generates the input list and output-prefix list consumed by the external
// C3D feature extractor, and prints the command line to run it with.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("c3dinput", "Generate C3D extractor input and output lists from a segment CSV file")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Pipeline config JSON file", Required: true})
	segmentCSV := parser.String("s", "segments", &argparse.Options{Help: "Segment CSV file (video-name num-frame i-frame duration [label])", Required: true})
	inputList := parser.String("i", "input-list", &argparse.Options{Help: "Input list file to write", Required: true})
	outputPrefix := parser.String("o", "output-prefixes", &argparse.Options{Help: "Output-prefix list file to write"})
	mkdir := parser.Flag("", "mkdir", &argparse.Options{Help: "Create the per-video blob output folders"})
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

	opts := c3d.NewInputFileOptions()
	opts.TSize = cfg.TSize
	opts.StepSize = cfg.TStride
	opts.Mkdir = *mkdir
	if *outputPrefix != "" {
		opts.OutputFolder = cfg.Resolve(cfg.BlobDir)
	}

	summary, err := c3d.GenerateInputFiles(logger, *segmentCSV, *inputList, *outputPrefix, opts)
	if err != nil {
		logger.Errorf("Failed to generate input files: %v", err)
		os.Exit(1)
	}
	logger.Infof("Wrote %v clips to %v (%.1f%% of segments skipped, %.1f clips per segment)",
		summary.NumClips, *inputList, summary.PctSkippedSegments*100, summary.ClipsPerSegment)

	if summary.OutputListFile != "" {
		argv, err := c3d.ExtractionCommand("", "<model-file>", summary.OutputListFile, "fc7-1", c3d.ExtractorConfig{
			SeqSource: *inputList,
			MeanFile:  "<mean-file>",
			BatchSize: 32,
			UseImage:  true,
		})
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		logger.Infof("Run the extractor with: %v", strings.Join(argv, " "))
	}
}
