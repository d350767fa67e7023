package main

import (
	"os"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/config"
	"github.com/dapslab/daps/pkg/featpack"
	"github.com/dapslab/daps/pkg/metadb"
	"github.com/dapslab/daps/pkg/model"
	"github.com/dapslab/daps/pkg/priors"
	"github.com/dapslab/daps/pkg/proposals"
)

// Runs the trained scorer over videos and writes the retrieved action
// proposals to a JSON or CSV file.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("retrieve", "Retrieve action proposals for all videos of a subset")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Pipeline config JSON file", Required: true})
	subset := parser.String("s", "subset", &argparse.Options{Help: "Subset to retrieve on", Default: "testing"})
	output := parser.String("o", "output", &argparse.Options{Help: "Output file (.json or .csv)", Required: true})
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
	m, err := model.Load(cfg.Resolve(cfg.ModelFile))
	if err != nil {
		logger.Errorf("Failed to load model: %v", err)
		os.Exit(1)
	}
	p, err := priors.Load(cfg.Resolve(cfg.PriorsFile))
	if err != nil {
		logger.Errorf("Failed to load priors: %v", err)
		os.Exit(1)
	}

	opts := proposals.GenerateOptions{
		Stride:       cfg.RetrievalStride,
		TStride:      cfg.TStride,
		NMSIoU:       cfg.NMSIoU,
		MaxProposals: cfg.MaxProposals,
	}
	gen, err := proposals.NewGenerator(logger, m, p, feats, opts)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	videos, err := db.Videos(*subset)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if len(videos) == 0 {
		logger.Errorf("No videos in subset '%v'", *subset)
		os.Exit(1)
	}

	all := []proposals.Proposal{}
	for _, v := range videos {
		props, err := gen.Video(v.Name, v.NumFrames)
		if err != nil {
			logger.Errorf("Retrieval failed on %v: %v", v.Name, err)
			os.Exit(1)
		}
		all = append(all, props...)
	}

	if strings.HasSuffix(*output, ".csv") {
		err = proposals.WriteCSV(*output, all)
	} else {
		err = proposals.WriteJSON(*output, all)
	}
	if err != nil {
		logger.Errorf("Failed to write proposals: %v", err)
		os.Exit(1)
	}
	logger.Infof("Wrote %v proposals for %v videos to %v", len(all), len(videos), *output)
}
