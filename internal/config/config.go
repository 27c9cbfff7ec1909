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

// Config holds the kfsearch server configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Milvus    MilvusConfig    `yaml:"milvus"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Sources   SourcesConfig   `yaml:"sources"`
	Search    SearchConfig    `yaml:"search"`
	Frames    FramesConfig    `yaml:"frames"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the Redis/Valkey connection used for text indexes,
// redis-backed dense sources and the embedding cache.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// MilvusConfig holds Milvus connection settings.
type MilvusConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	APIKey   string `yaml:"api_key"`
}

// PostgresConfig holds pgvector connection settings.
type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
	CacheTTLSec int                         `yaml:"cache_ttl_sec"` // 0 = cache disabled
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
}

// SourcesConfig maps search modes to candidate backends.
type SourcesConfig struct {
	Dense        map[string]DenseSourceConfig `yaml:"dense"` // keyed by model name (siglip, openclip, ...)
	CaptionModel string                       `yaml:"caption_model"`
	NoCapModel   string                       `yaml:"nocap_model"`
	OCR          *KeywordSourceConfig         `yaml:"ocr"`
	Speech       *KeywordSourceConfig         `yaml:"speech"`
}

// DenseSourceConfig describes one vector collection of keyframe embeddings.
type DenseSourceConfig struct {
	Driver       string `yaml:"driver"` // milvus, redis, valkey, pgvector
	Collection   string `yaml:"collection"`
	Vectorizer   string `yaml:"vectorizer"`
	PathField    string `yaml:"path_field"`
	CaptionField string `yaml:"caption_field"` // empty: source has no captions
	VectorField  string `yaml:"vector_field"`
	Metric       string `yaml:"metric"`   // milvus only: IP, COSINE, L2
	EFExtra      int    `yaml:"ef_extra"` // milvus only: ef = k + ef_extra
	TimeoutMS    int    `yaml:"timeout_ms"`
}

// KeywordSourceConfig describes a full-text index over OCR or transcript text.
type KeywordSourceConfig struct {
	Index     string `yaml:"index"`
	TextField string `yaml:"text_field"`
	PathField string `yaml:"path_field"`
	Fuzzy     *bool  `yaml:"fuzzy"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// SearchConfig holds fusion and response settings.
type SearchConfig struct {
	Alpha           float64 `yaml:"alpha"`
	BM25K1          float64 `yaml:"bm25_k1"`
	BM25B           float64 `yaml:"bm25_b"`
	DefaultK        int     `yaml:"default_k"`
	MaxK            int     `yaml:"max_k"`
	PublicImageRoot string  `yaml:"public_image_root"`
	ListingWorkers  int     `yaml:"listing_workers"`
}

// FramesConfig holds the keyframe directory layout.
type FramesConfig struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 8
	}

	for name, d := range c.Sources.Dense {
		if d.PathField == "" {
			d.PathField = "path"
		}
		if d.VectorField == "" {
			d.VectorField = "embedding"
		}
		if d.Metric == "" {
			d.Metric = "IP"
		}
		if d.EFExtra <= 0 {
			d.EFExtra = 400
		}
		if d.TimeoutMS <= 0 {
			d.TimeoutMS = 5000
		}
		if d.Vectorizer == "" {
			d.Vectorizer = name
		}
		c.Sources.Dense[name] = d
	}
	for _, k := range []*KeywordSourceConfig{c.Sources.OCR, c.Sources.Speech} {
		if k == nil {
			continue
		}
		if k.TextField == "" {
			k.TextField = "text"
		}
		if k.PathField == "" {
			k.PathField = "path"
		}
		if k.TimeoutMS <= 0 {
			k.TimeoutMS = 5000
		}
		if k.Fuzzy == nil {
			fuzzy := true
			k.Fuzzy = &fuzzy
		}
	}

	if c.Search.Alpha == 0 {
		c.Search.Alpha = 0.6
	}
	if c.Search.BM25K1 <= 0 {
		c.Search.BM25K1 = 1.5
	}
	if c.Search.BM25B == 0 {
		c.Search.BM25B = 0.75
	}
	if c.Search.DefaultK <= 0 {
		c.Search.DefaultK = 500
	}
	if c.Search.MaxK <= 0 {
		c.Search.MaxK = 2000
	}
	if c.Search.PublicImageRoot == "" {
		c.Search.PublicImageRoot = "/images/Keyframes/"
	}
	if c.Search.ListingWorkers <= 0 {
		c.Search.ListingWorkers = 8
	}
	if len(c.Frames.Extensions) == 0 {
		c.Frames.Extensions = []string{".jpg", ".jpeg", ".png", ".webp"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.Search.Alpha <= 0 || c.Search.Alpha >= 1 {
		return fmt.Errorf("search.alpha must be in (0, 1), got %g", c.Search.Alpha)
	}
	if c.Search.BM25B < 0 || c.Search.BM25B > 1 {
		return fmt.Errorf("search.bm25_b must be in [0, 1], got %g", c.Search.BM25B)
	}
	if c.Search.DefaultK > c.Search.MaxK {
		return fmt.Errorf("search.default_k (%d) exceeds search.max_k (%d)", c.Search.DefaultK, c.Search.MaxK)
	}
	if c.Frames.Root == "" {
		return fmt.Errorf("frames.root is required")
	}

	for name, d := range c.Sources.Dense {
		if err := c.validateDense(name, d); err != nil {
			return err
		}
	}
	if m := c.Sources.CaptionModel; m != "" {
		d, ok := c.Sources.Dense[m]
		if !ok {
			return fmt.Errorf("sources.caption_model %q is not a configured dense source", m)
		}
		if d.CaptionField == "" {
			return fmt.Errorf("sources.caption_model %q has no caption_field", m)
		}
	}
	if m := c.Sources.NoCapModel; m != "" {
		if _, ok := c.Sources.Dense[m]; !ok {
			return fmt.Errorf("sources.nocap_model %q is not a configured dense source", m)
		}
	}
	for name, k := range map[string]*KeywordSourceConfig{"ocr": c.Sources.OCR, "speech": c.Sources.Speech} {
		if k != nil && k.Index == "" {
			return fmt.Errorf("sources.%s.index is required", name)
		}
	}

	if c.NeedsDatabase() && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	return nil
}

func (c *Config) validateDense(name string, d DenseSourceConfig) error {
	if d.Collection == "" {
		return fmt.Errorf("sources.dense.%s.collection is required", name)
	}
	if _, ok := c.Embedding.Vectorizers[d.Vectorizer]; !ok {
		return fmt.Errorf("sources.dense.%s.vectorizer %q is not configured", name, d.Vectorizer)
	}
	switch d.Driver {
	case "milvus":
		if c.Milvus.Address == "" {
			return fmt.Errorf("milvus.address is required by sources.dense.%s", name)
		}
		switch d.Metric {
		case "IP", "COSINE", "L2":
		default:
			return fmt.Errorf("sources.dense.%s.metric must be IP, COSINE or L2, got %q", name, d.Metric)
		}
	case "pgvector":
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres.url is required by sources.dense.%s", name)
		}
	case "redis", "valkey":
	default:
		return fmt.Errorf("sources.dense.%s.driver %q is not supported", name, d.Driver)
	}
	return nil
}

// NeedsDatabase reports whether any configured component talks to Redis/Valkey.
func (c *Config) NeedsDatabase() bool {
	if c.Sources.OCR != nil || c.Sources.Speech != nil || c.Embedding.CacheTTLSec > 0 {
		return true
	}
	for _, d := range c.Sources.Dense {
		if d.Driver == "redis" || d.Driver == "valkey" {
			return true
		}
	}
	return false
}

// NeedsDriver reports whether any dense source uses the given driver.
func (c *Config) NeedsDriver(driver string) bool {
	for _, d := range c.Sources.Dense {
		if d.Driver == driver {
			return true
		}
	}
	return false
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests and `go run` from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
