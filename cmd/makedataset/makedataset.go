package main

import (
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/config"
	"github.com/dapslab/daps/pkg/dataset"
	"github.com/dapslab/daps/pkg/featpack"
	"github.com/dapslab/daps/pkg/metadb"
	"github.com/dapslab/daps/pkg/priors"
)

// Builds the labeled segment dataset of one subset: sliding windows over
// the packed features, labeled per anchor against the annotations.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("makedataset", "Build a labeled segment dataset for scorer training")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Pipeline config JSON file", Required: true})
	subset := parser.Selector("s", "subset", []string{"training", "validation"}, &argparse.Options{Help: "Subset to build", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Output HDF5 file", Required: true})
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
	feats, err := featpack.OpenReader(cfg.Resolve(cfg.FeaturePack))
	if err != nil {
		logger.Errorf("Failed to open feature pack: %v", err)
		os.Exit(1)
	}
	defer feats.Close()
	p, err := priors.Load(cfg.Resolve(cfg.PriorsFile))
	if err != nil {
		logger.Errorf("Failed to load priors: %v", err)
		os.Exit(1)
	}

	opts := dataset.Options{
		WindowLength: cfg.WindowLength,
		WindowStride: cfg.WindowStride,
		TSize:        cfg.TSize,
		TStride:      cfg.TStride,
		PositiveIoU:  cfg.PositiveIoU,
	}
	builder, err := dataset.NewBuilder(logger, db, feats, p, opts)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	ds, err := builder.Build(*subset)
	if err != nil {
		logger.Errorf("Dataset build failed: %v", err)
		os.Exit(1)
	}
	if err := featpack.WriteSegmentDataset(*output, ds); err != nil {
		logger.Errorf("Failed to write dataset: %v", err)
		os.Exit(1)
	}
	logger.Infof("Wrote %v windows (%v anchors each) to %v", ds.NumWindows(), ds.Labels.Cols, *output)
}
