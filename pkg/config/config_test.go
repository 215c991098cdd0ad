package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"holorecon/internal/models"
	"holorecon/pkg/alignment"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected the default config to be valid, got %v", err)
	}
	if cfg.Processing.NumWorkers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Processing.NumWorkers)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Alignment.Upsample != 10 {
		t.Errorf("Expected default upsample 10, got %d", cfg.Alignment.Upsample)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "holorecon.yaml")

	cfg := DefaultConfig()
	cfg.Alignment.Method = "xcorr"
	cfg.Alignment.Bin = 4
	cfg.Despike.Enabled = true
	cfg.Processing.SelectionTimeout = 90 * time.Second
	cfg.Output.LogFormat = "json"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("Expected %+v, got %+v", *cfg, *loaded)
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	content := "alignment:\n  method: fiducial\nprocessing:\n  selectionTimeout: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Alignment.Method != "fiducial" {
		t.Errorf("Expected method fiducial, got %s", cfg.Alignment.Method)
	}
	if cfg.Processing.SelectionTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.Processing.SelectionTimeout)
	}
	if cfg.Reconstruction.FresnelWidth != 6 {
		t.Errorf("Expected the default Fresnel width to survive, got %v", cfg.Reconstruction.FresnelWidth)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("alignment: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("Expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown method", func(c *Config) { c.Alignment.Method = "guess" }},
		{"zero upsample", func(c *Config) { c.Alignment.Upsample = 0 }},
		{"zero bin", func(c *Config) { c.Alignment.Bin = 0 }},
		{"negative filter", func(c *Config) { c.Alignment.FilterSize = -3 }},
		{"fresnel ratio", func(c *Config) { c.Reconstruction.FresnelRatio = 2 }},
		{"even kernel", func(c *Config) { c.Despike.KernelSize = 4 }},
		{"zero sigma", func(c *Config) { c.Despike.Sigma = 0 }},
		{"no workers", func(c *Config) { c.Processing.NumWorkers = 0 }},
		{"no timeout", func(c *Config) { c.Processing.SelectionTimeout = 0 }},
		{"log format", func(c *Config) { c.Output.LogFormat = "xml" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestConverters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alignment.Method = "manual"
	cfg.Alignment.FilterSize = 40
	cfg.Alignment.SelectROI = true
	cfg.Reconstruction.FresnelRatio = 0.5

	offset := &models.DriftVector{DX: 3, DY: -2}
	opts, err := cfg.AlignmentOptions(offset)
	if err != nil {
		t.Fatalf("AlignmentOptions failed: %v", err)
	}
	manual, ok := opts.Method.(alignment.Manual)
	if !ok || manual.Offset != offset {
		t.Errorf("Expected a manual method carrying the offset, got %+v", opts.Method)
	}
	if opts.FilterSize != 40 || !opts.SelectROI {
		t.Errorf("Expected filter 40 with ROI selection, got %+v", opts)
	}

	wp := cfg.WaveParams(64)
	if wp.Size != 64 || wp.FresnelRatio != 0.5 || wp.FresnelWidth != 6 {
		t.Errorf("Unexpected wave params %+v", wp)
	}

	dp := cfg.DespikeParams()
	if dp.Sigma != 8 || dp.KernelSize != 5 {
		t.Errorf("Unexpected despike params %+v", dp)
	}

	cfg.Alignment.Method = "nope"
	if _, err := cfg.AlignmentOptions(nil); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestSpecRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series", "sideband.yaml")
	spec := models.SidebandSpec{
		Rect:         models.Rect{X0: 10, X1: 40, Y0: 5, Y1: 25},
		Center:       models.Pixel{Row: 18, Col: 33},
		Size:         48,
		FresnelRatio: 0.3,
		FresnelWidth: 6,
	}

	if err := SaveSpec(spec, path); err != nil {
		t.Fatalf("SaveSpec failed: %v", err)
	}
	loaded, err := LoadSpec(path)
	if err != nil {
		t.Fatalf("LoadSpec failed: %v", err)
	}
	if *loaded != spec {
		t.Errorf("Expected %+v, got %+v", spec, *loaded)
	}

	if _, err := LoadSpec(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Expected an error for a missing sideband file")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("Expected the default config back, got %+v", *cfg)
	}
}
