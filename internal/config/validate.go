package config

import (
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateEnhancement(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	p := c.Pipeline
	if p.BatchSize < 1 {
		return fmt.Errorf("pipeline.batch_size must be >= 1, got %d", p.BatchSize)
	}
	if p.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("pipeline.max_concurrent_downloads must be >= 1, got %d", p.MaxConcurrentDownloads)
	}
	if p.MaxConcurrentAICalls < 1 {
		return fmt.Errorf("pipeline.max_concurrent_ai_calls must be >= 1, got %d", p.MaxConcurrentAICalls)
	}
	if p.QualityThreshold < 0 || p.QualityThreshold > 10 {
		return fmt.Errorf("pipeline.quality_threshold must be within [0, 10], got %g", p.QualityThreshold)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("pipeline.max_retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.TimeoutSeconds < 1 {
		return fmt.Errorf("pipeline.timeout_seconds must be >= 1, got %d", p.TimeoutSeconds)
	}
	if p.MaxResults < 1 {
		return fmt.Errorf("pipeline.max_results must be >= 1, got %d", p.MaxResults)
	}
	return nil
}

func (c *Config) validateEnhancement() error {
	e := c.Enhancement
	if e.MaxRounds < 1 {
		return fmt.Errorf("enhancement.max_rounds must be >= 1, got %d", e.MaxRounds)
	}
	if e.MinRounds < 1 || e.MinRounds > e.MaxRounds {
		return fmt.Errorf("enhancement.min_rounds must be within [1, max_rounds], got %d", e.MinRounds)
	}
	if e.MinImprovementRate < 0 {
		return fmt.Errorf("enhancement.min_improvement_rate must be >= 0, got %g", e.MinImprovementRate)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
