package main

import (
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/config"
	"github.com/dapslab/daps/pkg/metadb"
	"github.com/dapslab/daps/pkg/priors"
)

// Clusters the training annotations into the anchor segments ("priors")
// that the proposal scorer predicts against.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("priors", "Compute anchor segments from the training annotations")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Pipeline config JSON file", Required: true})
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

	videos, err := db.Videos("training")
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	samples := [][2]float32{}
	for _, v := range videos {
		instances, err := db.InstanceSegments(v.Name)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		samples = append(samples, priors.CollectWindowAnnotations(instances, v.NumFrames, cfg.WindowLength, cfg.WindowStride)...)
	}
	logger.Infof("Collected %v annotation samples from %v training videos", len(samples), len(videos))

	opts := priors.GenerateOptions{
		T:    cfg.WindowLength,
		K:    cfg.K,
		Seed: cfg.Seed,
	}
	p, err := priors.Generate(logger, samples, opts)
	if err != nil {
		logger.Errorf("Prior generation failed: %v", err)
		os.Exit(1)
	}

	priorsFile := cfg.Resolve(cfg.PriorsFile)
	if err := p.Save(priorsFile); err != nil {
		logger.Errorf("Failed to save priors: %v", err)
		os.Exit(1)
	}
	logger.Infof("Saved %v anchors to %v", p.K, priorsFile)
}
