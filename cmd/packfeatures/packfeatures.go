package main

import (
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/config"
	"github.com/dapslab/daps/pkg/featpack"
	"github.com/dapslab/daps/pkg/metadb"
)

// Stacks the raw per-clip C3D blobs of every video into a single HDF5
// feature pack, one group per video.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("packfeatures", "Stack raw C3D feature blobs into an HDF5 feature pack")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Pipeline config JSON file", Required: true})
	layerExt := parser.String("l", "layer", &argparse.Options{Help: "Blob filename extension", Default: ".fc7-1"})
	workers := parser.Int("w", "workers", &argparse.Options{Help: "Parallel blob-stacking workers", Default: 4})
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
	videos, err := db.Videos("")
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(videos))
	for _, v := range videos {
		names = append(names, v.Name)
	}

	packPath := cfg.Resolve(cfg.FeaturePack)
	opts := featpack.PackOptions{LayerExt: *layerExt, PoolSpec: cfg.PoolType, Workers: *workers}
	if err := featpack.PackDataset(logger, cfg.Resolve(cfg.BlobDir), names, packPath, opts); err != nil {
		logger.Errorf("Packing failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("Packed features of %v videos into %v", len(names), packPath)
}
