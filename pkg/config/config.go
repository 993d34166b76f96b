// Package config loads application configuration from file and environment
// variables via viper.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Providers maps provider roles ("high_fidelity", "high_throughput")
	// to their settings.
	Providers map[string]ProviderConfig `mapstructure:"providers"`

	// Routing configuration
	Routing RoutingConfig `mapstructure:"routing"`

	// Retry configuration
	Retry RetryConfig `mapstructure:"retry"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProviderConfig holds configuration for one provider role.
type ProviderConfig struct {
	Model             string  `mapstructure:"model"`
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	Temperature       float32 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
}

// RoutingConfig holds the hand-tuned routing constants as configuration.
type RoutingConfig struct {
	MaxHighFidelityChunks       int      `mapstructure:"max_high_fidelity_chunks"`
	PerChunkTokenCeiling        int      `mapstructure:"per_chunk_token_ceiling"`
	WholeDocumentTokenThreshold int      `mapstructure:"whole_document_token_threshold"`
	CriticalSections            []string `mapstructure:"critical_sections"`
}

// RetryConfig holds retry configuration. Durations are in milliseconds.
type RetryConfig struct {
	MaxRetries     int `mapstructure:"max_retries"`
	InitialDelayMs int `mapstructure:"initial_delay_ms"`
	MaxDelayMs     int `mapstructure:"max_delay_ms"`
	JitterMs       int `mapstructure:"jitter_ms"`
}

// CircuitBreakerConfig holds configuration for circuit breaking.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ParquetPath string `mapstructure:"parquet_path"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Provider defaults
	viper.SetDefault("providers.high_fidelity.model", "gpt-4o")
	viper.SetDefault("providers.high_fidelity.temperature", 0.2)
	viper.SetDefault("providers.high_fidelity.max_tokens", 8192)
	viper.SetDefault("providers.high_fidelity.requests_per_minute", 20)

	viper.SetDefault("providers.high_throughput.model", "gpt-4o-mini")
	viper.SetDefault("providers.high_throughput.temperature", 0.2)
	viper.SetDefault("providers.high_throughput.max_tokens", 16384)
	viper.SetDefault("providers.high_throughput.requests_per_minute", 60)

	// Routing defaults; the budget and threshold are hand-tuned values
	// carried as configuration, not hard-coded constants.
	viper.SetDefault("routing.max_high_fidelity_chunks", 3)
	viper.SetDefault("routing.per_chunk_token_ceiling", 12000)
	viper.SetDefault("routing.whole_document_token_threshold", 80000)

	// Retry defaults
	viper.SetDefault("retry.max_retries", 3)
	viper.SetDefault("retry.initial_delay_ms", 1000)
	viper.SetDefault("retry.max_delay_ms", 30000)
	viper.SetDefault("retry.jitter_ms", 1000)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", false)
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", home+"/.dmpbuilder/telemetry")
	}
}

// overrideWithEnv overrides config with environment variables.
func overrideWithEnv(config *Config) {
	if config.Providers == nil {
		config.Providers = make(map[string]ProviderConfig)
	}

	getProvider := func(name string) ProviderConfig {
		if c, ok := config.Providers[name]; ok {
			return c
		}
		return ProviderConfig{}
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		for _, name := range []string{"high_fidelity", "high_throughput"} {
			p := getProvider(name)
			if p.APIKey == "" {
				p.APIKey = apiKey
			}
			config.Providers[name] = p
		}
	}

	if key := os.Getenv("HIGH_FIDELITY_API_KEY"); key != "" {
		p := getProvider("high_fidelity")
		p.APIKey = key
		config.Providers["high_fidelity"] = p
	}
	if key := os.Getenv("HIGH_THROUGHPUT_API_KEY"); key != "" {
		p := getProvider("high_throughput")
		p.APIKey = key
		config.Providers["high_throughput"] = p
	}
	if url := os.Getenv("HIGH_THROUGHPUT_BASE_URL"); url != "" {
		p := getProvider("high_throughput")
		p.BaseURL = url
		config.Providers["high_throughput"] = p
	}

	if v := os.Getenv("MAX_HIGH_FIDELITY_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Routing.MaxHighFidelityChunks = n
		}
	}

	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
