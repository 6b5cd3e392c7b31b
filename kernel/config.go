package kernel

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfig wraps every machine configuration problem.
var ErrConfig = errors.New("kernel: bad config")

// TracingConfig controls the otel span exporter.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
}

// ImageConfig sizes the static program image, in pages per region.
type ImageConfig struct {
	TextPages   int `yaml:"text_pages"`
	DataPages   int `yaml:"data_pages"`
	BssPages    int `yaml:"bss_pages"`
	RodataPages int `yaml:"rodata_pages"`
}

// Config describes the simulated machine.
type Config struct {
	NTasks      int           `yaml:"ntasks"`
	MemoryPages int           `yaml:"memory_pages"`
	StackPages  int           `yaml:"stack_pages"`
	TimeQuantum int32         `yaml:"time_quantum"`
	Image       ImageConfig   `yaml:"image"`
	Tracing     TracingConfig `yaml:"tracing"`
}

// DefaultConfig is the machine the tests and the demo boot: 32 task
// slots, 8 MiB of memory, a 64 KiB user stack.
func DefaultConfig() Config {
	return Config{
		NTasks:      32,
		MemoryPages: 2048,
		StackPages:  16,
		TimeQuantum: 100,
		Image: ImageConfig{
			TextPages:   4,
			DataPages:   2,
			BssPages:    2,
			RodataPages: 1,
		},
		Tracing: TracingConfig{Service: "jos-in-go"},
	}
}

// LoadConfig reads a YAML machine description, with defaults filling
// anything the file leaves out.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects machines that cannot boot.
func (c Config) Validate() error {
	switch {
	case c.NTasks < 1:
		return fmt.Errorf("%w: ntasks must be at least 1", ErrConfig)
	case c.StackPages < 1:
		return fmt.Errorf("%w: stack_pages must be at least 1", ErrConfig)
	case c.TimeQuantum < 1:
		return fmt.Errorf("%w: time_quantum must be at least 1", ErrConfig)
	case c.MemoryPages < c.StackPages+8:
		return fmt.Errorf("%w: memory_pages too small for one task", ErrConfig)
	}
	return nil
}
