package main

import (
	"flag"
	"log"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	cfgPkg "github.com/xhad/mercury/pkg/config"
)

type Flags struct {
	ConfigPath string
	File       string
	SkipIngest bool
	Append     bool
	Port       string
}

func main() {
	flags := parseFlags()

	// Matches the original deployment convention: credentials and dataset
	// location come from a .env next to the binary.
	_ = godotenv.Load()

	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}
	if flags.File != "" {
		config.Dataset.File = flags.File
	}
	if flags.Port != "" {
		config.Server.Port = flags.Port
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		log.Fatal("invalid configuration")
	}

	if err := run(config, flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.File, "file", "", "Dataset file (.jsonl, .json or .csv) to ingest")
	flag.BoolVar(&flags.SkipIngest, "skip-ingest", false, "Serve without re-ingesting the dataset")
	flag.BoolVar(&flags.Append, "append", false, "Append to the store instead of overwriting it")
	flag.StringVar(&flags.Port, "port", "", "HTTP port")
	flag.Parse()

	return flags
}
