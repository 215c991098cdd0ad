// Package config provides configuration loading and management for holorecon.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"holorecon/internal/models"
	"holorecon/pkg/alignment"
	"holorecon/pkg/despike"
	"holorecon/pkg/holography"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Sideband filter parameters
	Reconstruction struct {
		// FresnelRatio is the inner end of the Fresnel strip as a fraction of
		// the aperture radius
		FresnelRatio float64 `yaml:"fresnelRatio"`

		// FresnelWidth is the Fresnel strip width in pixels
		FresnelWidth float64 `yaml:"fresnelWidth"`
	} `yaml:"reconstruction"`

	// Drift correction parameters
	Alignment struct {
		// Method is one of registration, crosscorrelation, fiducial, manual
		Method string `yaml:"method"`

		// FilterSize is the band-pass radius in frequency pixels, 0 to disable
		FilterSize float64 `yaml:"filterSize"`

		// Upsample is the sub-pixel factor of the registration method
		Upsample int `yaml:"upsample"`

		// Bin is the block-averaging factor of the cross-correlation method
		Bin int `yaml:"bin"`

		// SelectROI asks for an alignment region interactively
		SelectROI bool `yaml:"selectROI"`
	} `yaml:"alignment"`

	// Outlier removal parameters
	Despike struct {
		Enabled    bool    `yaml:"enabled"`
		Sigma      float64 `yaml:"sigma"`
		KernelSize int     `yaml:"kernelSize"`
	} `yaml:"despike"`

	// Processing parameters
	Processing struct {
		// NumWorkers is how many hologram pairs are reconstructed at once
		NumWorkers int `yaml:"numWorkers"`

		// SelectionTimeout bounds every interactive selection
		SelectionTimeout time.Duration `yaml:"selectionTimeout"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Verbose enables debug diagnostics
		Verbose bool `yaml:"verbose"`

		// LogFormat is "console" or "json"
		LogFormat string `yaml:"logFormat"`

		// SavePreviews writes a PNG of every view offered for selection
		SavePreviews bool `yaml:"savePreviews"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Reconstruction.FresnelRatio = holography.DefaultFresnelRatio
	cfg.Reconstruction.FresnelWidth = holography.DefaultFresnelWidth

	cfg.Alignment.Method = alignment.StrategyRegistration.String()
	cfg.Alignment.FilterSize = 0
	cfg.Alignment.Upsample = 10
	cfg.Alignment.Bin = 1
	cfg.Alignment.SelectROI = false

	d := despike.DefaultParams()
	cfg.Despike.Enabled = false
	cfg.Despike.Sigma = d.Sigma
	cfg.Despike.KernelSize = d.KernelSize

	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.SelectionTimeout = 60 * time.Second

	cfg.Output.Verbose = false
	cfg.Output.LogFormat = "console"
	cfg.Output.SavePreviews = true

	return cfg
}

// Validate checks every section, returning an error wrapping
// models.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.WaveParams(2).Validate(); err != nil {
		return err
	}
	if _, err := alignment.ParseStrategy(c.Alignment.Method); err != nil {
		return err
	}
	if c.Alignment.FilterSize < 0 {
		return fmt.Errorf("%w: alignment filterSize %g must not be negative", models.ErrConfiguration, c.Alignment.FilterSize)
	}
	if c.Alignment.Upsample < 1 {
		return fmt.Errorf("%w: alignment upsample %d must be at least 1", models.ErrConfiguration, c.Alignment.Upsample)
	}
	if c.Alignment.Bin < 1 {
		return fmt.Errorf("%w: alignment bin %d must be at least 1", models.ErrConfiguration, c.Alignment.Bin)
	}
	if err := c.DespikeParams().Validate(); err != nil {
		return err
	}
	if c.Processing.NumWorkers < 1 {
		return fmt.Errorf("%w: numWorkers %d must be at least 1", models.ErrConfiguration, c.Processing.NumWorkers)
	}
	if c.Processing.SelectionTimeout <= 0 {
		return fmt.Errorf("%w: selectionTimeout %v must be positive", models.ErrConfiguration, c.Processing.SelectionTimeout)
	}
	switch c.Output.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", models.ErrConfiguration, c.Output.LogFormat)
	}
	return nil
}

// WaveParams returns the sideband filter parameters for a sideband of the
// given size.
func (c *Config) WaveParams(size int) holography.WaveParams {
	return holography.WaveParams{
		Size:         size,
		FresnelRatio: c.Reconstruction.FresnelRatio,
		FresnelWidth: c.Reconstruction.FresnelWidth,
	}
}

// AlignmentOptions builds the aligner options. manual is only used by the
// manual method.
func (c *Config) AlignmentOptions(manual *models.DriftVector) (alignment.Options, error) {
	strategy, err := alignment.ParseStrategy(c.Alignment.Method)
	if err != nil {
		return alignment.Options{}, err
	}
	method, err := alignment.MethodFor(strategy, c.Alignment.Upsample, c.Alignment.Bin, manual)
	if err != nil {
		return alignment.Options{}, err
	}
	return alignment.Options{
		Method:     method,
		FilterSize: c.Alignment.FilterSize,
		SelectROI:  c.Alignment.SelectROI,
	}, nil
}

// DespikeParams returns the outlier removal parameters.
func (c *Config) DespikeParams() despike.Params {
	return despike.Params{
		Sigma:      c.Despike.Sigma,
		KernelSize: c.Despike.KernelSize,
	}
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	return writeYAML(cfg, configPath)
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// SaveSpec stores a resolved sideband so later runs of the same series can
// skip the interactive selection.
func SaveSpec(spec models.SidebandSpec, path string) error {
	return writeYAML(spec, path)
}

// LoadSpec reads a sideband written by SaveSpec.
func LoadSpec(path string) (*models.SidebandSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading sideband file: %w", err)
	}

	spec := &models.SidebandSpec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("error parsing sideband file: %w", err)
	}
	return spec, nil
}

func writeYAML(v interface{}, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}

	return nil
}
