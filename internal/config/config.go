// Package config handles chisel configuration loading and management.
package config

import "time"

// Config holds all settings of the chisel command.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Eval       EvalConfig       `yaml:"eval"`
	Generation GenerationConfig `yaml:"generation"`
	Mesher     MesherConfig     `yaml:"mesher"`
	Output     OutputConfig     `yaml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// EvalConfig holds scene script evaluation settings.
type EvalConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// GenerationConfig holds shape generation settings.
type GenerationConfig struct {
	Workers int `yaml:"workers"` // 0 means one per CPU
}

// MesherConfig holds tessellation settings.
type MesherConfig struct {
	Cells   int `yaml:"cells"`   // marching cubes cells along the longest axis
	Workers int `yaml:"workers"` // 0 means one per CPU
}

// OutputConfig holds export settings.
type OutputConfig struct {
	STL string `yaml:"stl"` // empty disables export
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Eval: EvalConfig{
			Timeout: 5 * time.Second,
		},
		Mesher: MesherConfig{
			Cells: 200,
		},
	}
}
