package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Pipeline contains the per-run processing options.
type Pipeline struct {
	BatchSize                  int     `toml:"batch_size"`
	MaxConcurrentDownloads     int     `toml:"max_concurrent_downloads"`
	MaxConcurrentAICalls       int     `toml:"max_concurrent_ai_calls"`
	EnableAIFiltering          bool    `toml:"enable_ai_filtering"`
	EnablePDFProcessing        bool    `toml:"enable_pdf_processing"`
	EnableStructuredExtraction bool    `toml:"enable_structured_extraction"`
	QualityThreshold           float64 `toml:"quality_threshold"`
	MaxRetries                 int     `toml:"max_retries"`
	TimeoutSeconds             int     `toml:"timeout_seconds"`
	MaxResults                 int     `toml:"max_results"`
}

// Enhancement contains the convergence policy for the experience loop.
type Enhancement struct {
	MaxRounds          int     `toml:"max_rounds"`
	MinRounds          int     `toml:"min_rounds"`
	MinImprovementRate float64 `toml:"min_improvement_rate"`
}

// Paths contains directory configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	DownloadDir  string `toml:"download_dir"`
	LogDir       string `toml:"log_dir"`
	IngestDBPath string `toml:"ingest_db_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for litpipe.
type Config struct {
	Pipeline    Pipeline    `toml:"pipeline"`
	Enhancement Enhancement `toml:"enhancement"`
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/litpipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. When no file exists at the
// resolved path the defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// Timeout returns the per-item timeout as a duration.
func (p Pipeline) Timeout() int {
	return p.TimeoutSeconds
}

func (c *Config) normalize() error {
	if env := strings.TrimSpace(os.Getenv("LITPIPE_WORKSPACE")); env != "" {
		c.Paths.WorkspaceDir = env
	}

	for _, field := range []*string{&c.Paths.WorkspaceDir, &c.Paths.DownloadDir, &c.Paths.LogDir, &c.Paths.IngestDBPath} {
		if *field == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	if c.Paths.DownloadDir == "" && c.Paths.WorkspaceDir != "" {
		c.Paths.DownloadDir = filepath.Join(c.Paths.WorkspaceDir, "downloads")
	}
	if c.Paths.IngestDBPath == "" && c.Paths.WorkspaceDir != "" {
		c.Paths.IngestDBPath = filepath.Join(c.Paths.WorkspaceDir, "litpipe.db")
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", pathValue, err)
	}
	return abs, nil
}
