// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// DefaultUserAgent identifies the engine to external sources.
const DefaultUserAgent = "music-curator/0.1 (+https://github.com/pdiddy/music-curator)"

// HTTPConfig holds shared HTTP settings used by servers that make network requests.
type HTTPConfig struct {
	// Timeout is the per-attempt HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SourceConfig holds the resource-control settings for one external source:
// rate limits, cache lifetime, and retry policy.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// RequestsPerMinute caps admissions in any trailing minute (default 30).
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`

	// RequestsPerHour caps admissions in any trailing hour (default 500).
	RequestsPerHour int `json:"requests_per_hour" yaml:"requests_per_hour" mapstructure:"requests_per_hour"`

	// CacheTTL is how long successful results are served from cache.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// OperationTimeout bounds one external operation across all retry attempts.
	OperationTimeout time.Duration `json:"operation_timeout" yaml:"operation_timeout" mapstructure:"operation_timeout"`

	// MaxAttempts is the total number of attempts per external call (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryBaseDelay is the delay before the first retry; later retries double it.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`

	// RetryMaxDelay caps a single backoff delay.
	RetryMaxDelay time.Duration `json:"retry_max_delay" yaml:"retry_max_delay" mapstructure:"retry_max_delay"`
}

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate rejects settings that cannot produce a working source.
func (c SourceConfig) Validate() error {
	var errs []error
	if c.RequestsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("requests_per_minute must be positive, got %d", c.RequestsPerMinute))
	}
	if c.RequestsPerHour <= 0 {
		errs = append(errs, fmt.Errorf("requests_per_hour must be positive, got %d", c.RequestsPerHour))
	}
	if c.RequestsPerHour > 0 && c.RequestsPerMinute > c.RequestsPerHour {
		errs = append(errs, fmt.Errorf("requests_per_minute (%d) exceeds requests_per_hour (%d)", c.RequestsPerMinute, c.RequestsPerHour))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must be positive, got %s", c.CacheTTL))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.OperationTimeout < c.Timeout {
		errs = append(errs, fmt.Errorf("operation_timeout (%s) is shorter than timeout (%s)", c.OperationTimeout, c.Timeout))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.RetryBaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("retry_base_delay must be positive, got %s", c.RetryBaseDelay))
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		errs = append(errs, fmt.Errorf("retry_max_delay (%s) is shorter than retry_base_delay (%s)", c.RetryMaxDelay, c.RetryBaseDelay))
	}
	if c.UserAgent == "" {
		errs = append(errs, errors.New("user_agent is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// SearchConfig holds settings for the entity search server.
type SearchConfig struct {
	SourceConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the SPARQL query endpoint.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// Language selects labels and the entity-search language (default "en").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// DefaultLimit applies when a query does not set one (default 10).
	DefaultLimit int `json:"default_limit" yaml:"default_limit" mapstructure:"default_limit"`

	// CandidatePool is how many raw candidates are requested from the source (default 50).
	CandidatePool int `json:"candidate_pool" yaml:"candidate_pool" mapstructure:"candidate_pool"`

	// CompletenessBonus is the most a fully described candidate gains within its tier.
	CompletenessBonus float64 `json:"completeness_bonus" yaml:"completeness_bonus" mapstructure:"completeness_bonus"`

	// CompletenessPenalty is the most a bare candidate loses within its tier.
	CompletenessPenalty float64 `json:"completeness_penalty" yaml:"completeness_penalty" mapstructure:"completeness_penalty"`
}

// Validate checks the source settings and the search-specific fields.
func (c SearchConfig) Validate() error {
	if err := c.SourceConfig.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("search: %w: endpoint is required", ErrInvalidConfig)
	case c.DefaultLimit <= 0:
		return fmt.Errorf("search: %w: default_limit must be positive", ErrInvalidConfig)
	case c.CandidatePool < c.DefaultLimit:
		return fmt.Errorf("search: %w: candidate_pool must be at least default_limit", ErrInvalidConfig)
	case c.CompletenessBonus < 0 || c.CompletenessBonus > 0.05:
		return fmt.Errorf("search: %w: completeness_bonus must be within [0, 0.05]", ErrInvalidConfig)
	case c.CompletenessPenalty < 0 || c.CompletenessPenalty > 0.05:
		return fmt.Errorf("search: %w: completeness_penalty must be within [0, 0.05]", ErrInvalidConfig)
	}
	return nil
}

// ConfidenceWeights tunes the aggregate indexing confidence. The weights
// should sum to 1.
type ConfidenceWeights struct {
	// Profile weighs whether a profile document was found.
	Profile float64 `json:"profile" yaml:"profile" mapstructure:"profile"`

	// Yield weighs how many entities were extracted.
	Yield float64 `json:"yield" yaml:"yield" mapstructure:"yield"`

	// Quality weighs the mean per-entity confidence.
	Quality float64 `json:"quality" yaml:"quality" mapstructure:"quality"`
}

// WebSearchConfig holds settings for the web-search fallback. The
// fallback is disabled unless both APIKey and EngineID are set.
type WebSearchConfig struct {
	// Endpoint is the Custom Search JSON API URL.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// APIKey authenticates requests. Normally loaded from .secrets/.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// EngineID is the programmable search engine identifier (cx).
	EngineID string `json:"engine_id,omitempty" yaml:"engine_id,omitempty" mapstructure:"engine_id"`

	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	RequestsPerHour   int `json:"requests_per_hour" yaml:"requests_per_hour" mapstructure:"requests_per_hour"`

	// Results is the number of hits requested per query (max 10).
	Results int `json:"results" yaml:"results" mapstructure:"results"`

	// EntityCap caps the confidence of entities found in snippets.
	EntityCap float64 `json:"entity_cap" yaml:"entity_cap" mapstructure:"entity_cap"`

	// Ceiling caps the aggregate confidence of a web-only result.
	Ceiling float64 `json:"ceiling" yaml:"ceiling" mapstructure:"ceiling"`
}

// Enabled reports whether credentials for the fallback are configured.
func (c WebSearchConfig) Enabled() bool {
	return c.APIKey != "" && c.EngineID != ""
}

// IndexConfig holds settings for the content index server.
type IndexConfig struct {
	SourceConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the MediaWiki action API URL.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// PageBase is prefixed to page titles to build canonical URLs.
	PageBase string `json:"page_base" yaml:"page_base" mapstructure:"page_base"`

	MaxProfilePages   int `json:"max_profile_pages" yaml:"max_profile_pages" mapstructure:"max_profile_pages"`
	MaxAlbums         int `json:"max_albums" yaml:"max_albums" mapstructure:"max_albums"`
	MaxSongCandidates int `json:"max_song_candidates" yaml:"max_song_candidates" mapstructure:"max_song_candidates"`
	MaxSongPages      int `json:"max_song_pages" yaml:"max_song_pages" mapstructure:"max_song_pages"`

	// LookupConcurrency bounds parallel album/song page lookups.
	LookupConcurrency int `json:"lookup_concurrency" yaml:"lookup_concurrency" mapstructure:"lookup_concurrency"`

	// CorroborationBoost is added to an entity whose dedicated page was found.
	CorroborationBoost float64 `json:"corroboration_boost" yaml:"corroboration_boost" mapstructure:"corroboration_boost"`

	Weights ConfidenceWeights `json:"weights" yaml:"weights" mapstructure:"weights"`

	WebSearch WebSearchConfig `json:"web_search" yaml:"web_search" mapstructure:"web_search"`
}

// Validate checks the source settings and the index-specific fields.
func (c IndexConfig) Validate() error {
	if err := c.SourceConfig.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("index: %w: endpoint is required", ErrInvalidConfig)
	case c.MaxProfilePages <= 0 || c.MaxAlbums <= 0 || c.MaxSongCandidates <= 0 || c.MaxSongPages < 0:
		return fmt.Errorf("index: %w: page and entity limits must be positive", ErrInvalidConfig)
	case c.LookupConcurrency <= 0:
		return fmt.Errorf("index: %w: lookup_concurrency must be positive", ErrInvalidConfig)
	case c.CorroborationBoost < 0 || c.CorroborationBoost > 1:
		return fmt.Errorf("index: %w: corroboration_boost must be within [0, 1]", ErrInvalidConfig)
	case c.Weights.Profile < 0 || c.Weights.Yield < 0 || c.Weights.Quality < 0:
		return fmt.Errorf("index: %w: confidence weights must not be negative", ErrInvalidConfig)
	case c.Weights.Profile+c.Weights.Yield+c.Weights.Quality <= 0:
		return fmt.Errorf("index: %w: confidence weights must not all be zero", ErrInvalidConfig)
	}
	if c.WebSearch.Enabled() {
		switch {
		case c.WebSearch.RequestsPerMinute <= 0 || c.WebSearch.RequestsPerHour <= 0:
			return fmt.Errorf("index: %w: web_search rate limits must be positive", ErrInvalidConfig)
		case c.WebSearch.Results <= 0 || c.WebSearch.Results > 10:
			return fmt.Errorf("index: %w: web_search results must be within [1, 10]", ErrInvalidConfig)
		}
	}
	return nil
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// FilePath enables a rotating log file in addition to stderr.
	FilePath   string `json:"file_path,omitempty" yaml:"file_path,omitempty" mapstructure:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
}

// Config groups all settings for the engine.
type Config struct {
	Search  SearchConfig  `json:"search" yaml:"search" mapstructure:"search"`
	Index   IndexConfig   `json:"index" yaml:"index" mapstructure:"index"`
	Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	return c.Index.Validate()
}

// DefaultSourceConfig returns the shared resource-control defaults.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: DefaultUserAgent,
		},
		RequestsPerMinute: 30,
		RequestsPerHour:   500,
		CacheTTL:          time.Hour,
		OperationTimeout:  2 * time.Minute,
		MaxAttempts:       3,
		RetryBaseDelay:    2 * time.Second,
		RetryMaxDelay:     30 * time.Second,
	}
}

// DefaultConfig returns a configuration that works against the public
// Wikidata and Wikipedia endpoints with the web fallback disabled.
func DefaultConfig() Config {
	searchSrc := DefaultSourceConfig()
	searchSrc.CacheTTL = 6 * time.Hour

	indexSrc := DefaultSourceConfig()
	indexSrc.CacheTTL = 24 * time.Hour
	indexSrc.OperationTimeout = 5 * time.Minute

	return Config{
		Search: SearchConfig{
			SourceConfig:        searchSrc,
			Endpoint:            "https://query.wikidata.org/sparql",
			Language:            "en",
			DefaultLimit:        10,
			CandidatePool:       50,
			CompletenessBonus:   0.05,
			CompletenessPenalty: 0.05,
		},
		Index: IndexConfig{
			SourceConfig:       indexSrc,
			Endpoint:           "https://en.wikipedia.org/w/api.php",
			PageBase:           "https://en.wikipedia.org/wiki/",
			MaxProfilePages:    3,
			MaxAlbums:          10,
			MaxSongCandidates:  20,
			MaxSongPages:       10,
			LookupConcurrency:  4,
			CorroborationBoost: 0.15,
			Weights: ConfidenceWeights{
				Profile: 0.2,
				Yield:   0.4,
				Quality: 0.4,
			},
			WebSearch: WebSearchConfig{
				Endpoint:          "https://www.googleapis.com/customsearch/v1",
				RequestsPerMinute: 2,
				RequestsPerHour:   4,
				Results:           10,
				EntityCap:         0.5,
				Ceiling:           0.6,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
