package config

import (
	"flag"
	"time"
)

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagCells   = flag.Int("cells", 0, "Marching cubes cells along the longest axis")
	flagWorkers = flag.Int("workers", 0, "Worker count for generation and meshing")
	flagTimeout = flag.Duration("timeout", 0, "Scene script evaluation timeout")
	flagSTL     = flag.String("stl", "", "Write the evaluated meshes to this STL file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagCells > 0 {
		cfg.Mesher.Cells = *flagCells
	}
	if *flagWorkers > 0 {
		cfg.Generation.Workers = *flagWorkers
		cfg.Mesher.Workers = *flagWorkers
	}
	if *flagTimeout > time.Duration(0) {
		cfg.Eval.Timeout = *flagTimeout
	}
	if *flagSTL != "" {
		cfg.Output.STL = *flagSTL
	}
}
