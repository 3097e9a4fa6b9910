package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the slidewise API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Content    ContentConfig    `yaml:"content"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Cache      CacheConfig      `yaml:"cache"`
	License    LicenseConfig    `yaml:"license"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds cache store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, file (default: file)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"` // file driver only
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// ContentConfig holds extractor output locations.
type ContentConfig struct {
	SlidesPath     string `yaml:"slides_path"`
	EmbeddingsPath string `yaml:"embeddings_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CompletionConfig holds chat completion settings.
type CompletionConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	TimeoutSec  int     `yaml:"timeout_sec"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	MaxResults     int  `yaml:"max_results"`
	MaxQueryLength int  `yaml:"max_query_length"`
	Semantic       bool `yaml:"semantic"` // default scoring mode when embeddings exist
}

// CacheConfig holds query result cache settings.
type CacheConfig struct {
	TTLHours float64 `yaml:"ttl_hours"`
}

// LicenseConfig holds the license knowledge: tier order, vocabularies, the
// synonym table, and the default-knowledge table. All of it is data, not
// code, so a different licensing scheme is a config change.
type LicenseConfig struct {
	Tiers           []string                   `yaml:"tiers"`
	Products        []string                   `yaml:"products"`
	Features        []string                   `yaml:"features"`
	FallbackFeature string                     `yaml:"fallback_feature"`
	Synonyms        map[string][]string        `yaml:"synonyms"`
	FeatureDefaults map[string]map[string]bool `yaml:"feature_defaults"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "file"
	}
	if c.Database.Path == "" {
		c.Database.Path = "slidewise_cache.json"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "slidewise:"
	}
	if c.Content.SlidesPath == "" {
		c.Content.SlidesPath = "moad_content.json"
	}
	if c.Content.EmbeddingsPath == "" {
		c.Content.EmbeddingsPath = "moad_embeddings.json"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 15
	}
	if c.Completion.Model == "" {
		c.Completion.Model = "gpt-4o-mini"
	}
	if c.Completion.TimeoutSec <= 0 {
		c.Completion.TimeoutSec = 60
	}
	if c.Completion.MaxTokens <= 0 {
		c.Completion.MaxTokens = 1024
	}
	if c.Retrieval.MaxResults <= 0 {
		c.Retrieval.MaxResults = 10
	}
	if c.Retrieval.MaxQueryLength <= 0 {
		c.Retrieval.MaxQueryLength = 2048
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24
	}
	if len(c.License.Tiers) == 0 {
		c.License.Tiers = []string{"standard", "pro", "pro+", "enterprise"}
	}
	if len(c.License.Products) == 0 {
		c.License.Products = []string{"itsm", "itom", "csx", "hrsd", "csm", "itbm"}
	}
	if len(c.License.Features) == 0 {
		c.License.Features = []string{
			"virtual agent", "now assist", "predictive intelligence",
			"workflow", "performance analytics", "ai search", "knowledge graph",
			"chatbot", "automation", "cmdb", "service portal",
		}
	}
	if c.License.FallbackFeature == "" {
		c.License.FallbackFeature = "virtual agent"
	}
	if c.License.Synonyms == nil {
		c.License.Synonyms = map[string][]string{
			"virtual agent":           {"va", "chatbot", "chat bot", "conversational bot"},
			"now assist":              {"assist", "gen ai", "generative ai", "llm"},
			"predictive intelligence": {"pi", "prediction", "machine learning", "ml"},
			"performance analytics":   {"pa", "analytics", "reporting"},
		}
	}
	if c.License.FeatureDefaults == nil {
		notInStandard := map[string]bool{
			"standard": false, "pro": true, "pro+": true, "enterprise": true,
		}
		c.License.FeatureDefaults = map[string]map[string]bool{
			"virtual agent":           notInStandard,
			"now assist":              notInStandard,
			"predictive intelligence": notInStandard,
			"performance analytics":   notInStandard,
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "file":
		// path defaulted above
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"file\", got %q", c.Database.Driver)
	}
	seen := make(map[string]bool, len(c.License.Tiers))
	for _, t := range c.License.Tiers {
		if t == "" {
			return fmt.Errorf("license.tiers must not contain empty names")
		}
		if seen[t] {
			return fmt.Errorf("license.tiers contains duplicate %q", t)
		}
		seen[t] = true
	}
	for feature, byTier := range c.License.FeatureDefaults {
		for tier := range byTier {
			if !seen[tier] {
				return fmt.Errorf("license.feature_defaults.%s references unknown tier %q", feature, tier)
			}
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
