package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
)

// Config holds the candidate indexer configuration. It is constructed once at
// process start and passed into every component constructor; no component
// reads ambient process state directly.
type Config struct {
	Warehouse  WarehouseConfig  `yaml:"warehouse"`
	Search     SearchConfig     `yaml:"search"`
	Queue      QueueConfig      `yaml:"queue"`
	Storage    StorageConfig    `yaml:"storage"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// WarehouseConfig holds the query engine gateway settings.
type WarehouseConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Database        string `yaml:"database"`
	OutputLocation  string `yaml:"output_location"`
	PollIntervalSec int    `yaml:"poll_interval_sec"`
}

// SearchConfig holds both index endpoints and the shared alias.
type SearchConfig struct {
	Endpoint       string `yaml:"endpoint"`        // metadata index
	VectorEndpoint string `yaml:"vector_endpoint"` // per-chunk vector index
	Alias          string `yaml:"alias"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
}

// QueueConfig holds the fan-out queue settings.
type QueueConfig struct {
	Addrs           []string `yaml:"addrs"`
	Password        string   `yaml:"password"`
	ResumeQueue     string   `yaml:"resume_queue"`
	BfqQueue        string   `yaml:"bfq_queue"`
	DeliveryDelaySec int     `yaml:"delivery_delay_sec"`
	MaxAttempts     int      `yaml:"max_attempts"`
	PollIntervalSec int      `yaml:"poll_interval_sec"`
}

// StorageConfig holds object storage bucket names and keys.
type StorageConfig struct {
	ResumeBucket string `yaml:"resume_bucket"`
	BfqBucket    string `yaml:"bfq_bucket"`
	BfqSchemaKey string `yaml:"bfq_schema_key"`
}

// OpenAIConfig holds LLM summarization and embedding settings.
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	SummaryModel   string `yaml:"summary_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimensions     int    `yaml:"dimensions"`
}

// ExtractionConfig holds bulk extraction settings.
type ExtractionConfig struct {
	// DateDiff is how many days back the incremental extraction reaches.
	// Negative disables the sliding window and DefaultStartDate applies.
	DateDiff         int    `yaml:"date_diff"`
	DefaultStartDate string `yaml:"default_start_date"`
	// CursorDir is where per-extraction cursor files persist between
	// invocations.
	CursorDir string `yaml:"cursor_dir"`
	// BudgetSec bounds one invocation; the paginator persists the cursor
	// and returns when less than the early-exit threshold remains.
	BudgetSec int `yaml:"budget_sec"`
}

// MetricsConfig holds the /metrics listener settings for consumer mode.
type MetricsConfig struct {
	Port int `yaml:"port"`
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Warehouse.PollIntervalSec <= 0 {
		c.Warehouse.PollIntervalSec = 1
	}
	if c.Search.Alias == "" {
		c.Search.Alias = "all_candidates"
	}
	if c.Queue.DeliveryDelaySec <= 0 {
		c.Queue.DeliveryDelaySec = 60
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = 5
	}
	if c.Queue.PollIntervalSec <= 0 {
		c.Queue.PollIntervalSec = 2
	}
	if c.Storage.BfqSchemaKey == "" {
		c.Storage.BfqSchemaKey = "config/bfq-questions.jsonc"
	}
	if c.OpenAI.SummaryModel == "" {
		c.OpenAI.SummaryModel = "gpt-4o-mini"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if c.OpenAI.Dimensions <= 0 {
		c.OpenAI.Dimensions = 1536
	}
	if c.Extraction.DefaultStartDate == "" {
		c.Extraction.DefaultStartDate = "1900-01-01"
	}
	if c.Extraction.CursorDir == "" {
		c.Extraction.CursorDir = "data"
	}
	if c.Extraction.BudgetSec <= 0 {
		c.Extraction.BudgetSec = 840
	}
	if c.Metrics.Port <= 0 {
		c.Metrics.Port = 9090
	}
}

// Validate checks the configuration for correctness. Missing endpoints or
// queue identifiers fail the whole invocation: they indicate a deployment
// defect, not a data problem.
func (c *Config) Validate() error {
	if c.Warehouse.Endpoint == "" {
		return fmt.Errorf("warehouse.endpoint is required: %w", domain.ErrMissingConfig)
	}
	if c.Warehouse.Database == "" {
		return fmt.Errorf("warehouse.database is required: %w", domain.ErrMissingConfig)
	}
	if c.Search.Endpoint == "" {
		return fmt.Errorf("search.endpoint is required: %w", domain.ErrMissingConfig)
	}
	if c.Search.VectorEndpoint == "" {
		return fmt.Errorf("search.vector_endpoint is required: %w", domain.ErrMissingConfig)
	}
	if len(c.Queue.Addrs) == 0 {
		return fmt.Errorf("queue.addrs is required: %w", domain.ErrMissingConfig)
	}
	if c.Queue.ResumeQueue == "" || c.Queue.BfqQueue == "" {
		return fmt.Errorf("queue.resume_queue and queue.bfq_queue are required: %w", domain.ErrMissingConfig)
	}
	if c.Storage.ResumeBucket == "" {
		return fmt.Errorf("storage.resume_bucket is required: %w", domain.ErrMissingConfig)
	}
	if c.Storage.BfqBucket == "" {
		return fmt.Errorf("storage.bfq_bucket is required: %w", domain.ErrMissingConfig)
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required: %w", domain.ErrMissingConfig)
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
