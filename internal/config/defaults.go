package config

const (
	defaultWorkspaceDir           = "~/.local/share/litpipe"
	defaultBatchSize              = 10
	defaultMaxConcurrentDownloads = 5
	defaultMaxConcurrentAICalls   = 3
	defaultQualityThreshold       = 6.0
	defaultMaxRetries             = 3
	defaultTimeoutSeconds         = 30
	defaultMaxResults             = 100
	defaultEnhancementMaxRounds   = 10
	defaultEnhancementMinRounds   = 3
	defaultMinImprovementRate     = 5.0
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			BatchSize:                  defaultBatchSize,
			MaxConcurrentDownloads:     defaultMaxConcurrentDownloads,
			MaxConcurrentAICalls:       defaultMaxConcurrentAICalls,
			EnableAIFiltering:          true,
			EnablePDFProcessing:        true,
			EnableStructuredExtraction: true,
			QualityThreshold:           defaultQualityThreshold,
			MaxRetries:                 defaultMaxRetries,
			TimeoutSeconds:             defaultTimeoutSeconds,
			MaxResults:                 defaultMaxResults,
		},
		Enhancement: Enhancement{
			MaxRounds:          defaultEnhancementMaxRounds,
			MinRounds:          defaultEnhancementMinRounds,
			MinImprovementRate: defaultMinImprovementRate,
		},
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
