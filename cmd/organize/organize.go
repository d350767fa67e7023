package main

import (
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/config"
	"github.com/dapslab/daps/pkg/metadb"
)

// Moves dataset metadata between the CSV files shipped with a dataset and
// the sqlite database the rest of the pipeline reads.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("organize", "Import/export video and action instance metadata between CSV files and the metadata database")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Pipeline config JSON file", Required: true})
	action := parser.Selector("a", "action", []string{"import", "export"}, &argparse.Options{Help: "Direction of the transfer", Required: true})
	csvDir := parser.String("d", "dir", &argparse.Options{Help: "Directory holding videos.csv and instances.csv", Required: true})
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

	switch *action {
	case "import":
		err = db.ImportCSV(*csvDir)
	case "export":
		err = db.ExportCSV(*csvDir)
	}
	if err != nil {
		logger.Errorf("%v failed: %v", *action, err)
		os.Exit(1)
	}

	videos, err := db.Videos("")
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	nInstances, err := db.CountInstances()
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Infof("%v complete: %v videos, %v instances", *action, len(videos), nInstances)
}
