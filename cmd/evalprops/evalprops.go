package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/config"
	"github.com/dapslab/daps/pkg/metadb"
	"github.com/dapslab/daps/pkg/proposals"
	"github.com/dapslab/daps/pkg/segment"
)

// Scores a proposal file against the annotations in the metadata database:
// average recall, plus recall at fixed proposal counts.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("evalprops", "Evaluate retrieved proposals against the annotated instances")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Pipeline config JSON file", Required: true})
	propsFile := parser.String("p", "proposals", &argparse.Options{Help: "Proposal JSON file from retrieve", Required: true})
	subset := parser.String("s", "subset", &argparse.Options{Help: "Subset the proposals were retrieved on", Default: "testing"})
	counts := parser.String("n", "counts", &argparse.Options{Help: "Comma-separated proposal counts for the recall curve", Default: "10,50,100,500,1000"})
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
	props, err := proposals.ReadJSON(*propsFile)
	if err != nil {
		logger.Errorf("Failed to read proposals: %v", err)
		os.Exit(1)
	}

	videos, err := db.Videos(*subset)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	gt := map[string][]segment.Segment{}
	nInstances := 0
	for _, v := range videos {
		instances, err := db.InstanceSegments(v.Name)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		if len(instances) > 0 {
			gt[v.Name] = instances
			nInstances += len(instances)
		}
	}
	if nInstances == 0 {
		logger.Errorf("Subset '%v' has no annotated instances", *subset)
		os.Exit(1)
	}

	logger.Infof("Evaluating %v proposals against %v instances in %v videos", len(props), nInstances, len(gt))
	logger.Infof("Average recall: %.4f", proposals.AverageRecall(props, gt))

	nums := []int{}
	for _, s := range strings.Split(*counts, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			logger.Errorf("Bad proposal count '%v'", s)
			os.Exit(1)
		}
		nums = append(nums, n)
	}
	recalls := proposals.RecallAtCounts(props, gt, nums)
	for i, n := range nums {
		logger.Infof("Average recall at %v proposals/video: %.4f", n, recalls[i])
	}
}
