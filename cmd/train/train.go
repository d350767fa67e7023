package main

import (
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/config"
	"github.com/dapslab/daps/pkg/featpack"
	"github.com/dapslab/daps/pkg/model"
)

// Trains the proposal scorer on a labeled segment dataset.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("train", "Train the proposal scorer on labeled segment datasets")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Pipeline config JSON file", Required: true})
	trainFile := parser.String("t", "train", &argparse.Options{Help: "Training segment dataset (HDF5)", Required: true})
	valFile := parser.String("v", "validation", &argparse.Options{Help: "Validation segment dataset (HDF5)"})
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

	trainDS, err := featpack.ReadSegmentDataset(*trainFile)
	if err != nil {
		logger.Errorf("Failed to read training dataset: %v", err)
		os.Exit(1)
	}
	var valDS *featpack.SegmentDataset
	if *valFile != "" {
		valDS, err = featpack.ReadSegmentDataset(*valFile)
		if err != nil {
			logger.Errorf("Failed to read validation dataset: %v", err)
			os.Exit(1)
		}
	}

	opts := model.TrainOptions{
		Epochs:       cfg.Epochs,
		LearningRate: cfg.LearningRate,
		BatchSize:    cfg.BatchSize,
		WeightDecay:  model.NewTrainOptions().WeightDecay,
		Seed:         cfg.Seed,
	}
	m, err := model.Train(logger, trainDS, valDS, cfg.WindowLength, opts)
	if err != nil {
		logger.Errorf("Training failed: %v", err)
		os.Exit(1)
	}

	modelFile := cfg.Resolve(cfg.ModelFile)
	if err := m.Save(modelFile); err != nil {
		logger.Errorf("Failed to save model: %v", err)
		os.Exit(1)
	}
	logger.Infof("Saved model to %v", modelFile)
}
