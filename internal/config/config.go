package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port         int      `toml:"port"`
	Mode         string   `toml:"mode"`
	AllowOrigins []string `toml:"allow_origins"`
	Version      string   `toml:"version"`
	Service      string   `toml:"service"`
}

type JudgeConfig struct {
	Provider         string  `toml:"provider"`
	Model            string  `toml:"model"`
	APIKey           string  `toml:"api_key"`
	BaseURL          string  `toml:"base_url"`
	Region           string  `toml:"region"`
	AnthropicVersion string  `toml:"anthropic_version"`
	MaxTokens        int     `toml:"max_tokens"`
	Temperature      float64 `toml:"temperature"`
}

// StorageConfig locates reference and uploaded images. Provider "s3" reads
// the buckets; "dir" reads local directories.
type StorageConfig struct {
	Provider      string `toml:"provider"`
	Region        string `toml:"region"`
	DatasetBucket string `toml:"dataset_bucket"`
	UploadBucket  string `toml:"upload_bucket"`
	DatasetDir    string `toml:"dataset_dir"`
	UploadDir     string `toml:"upload_dir"`
	PresignExpiry string `toml:"presign_expiry"`
}

type ReferencesConfig struct {
	Prefix            string   `toml:"prefix"`
	LabelFolder       string   `toml:"label_folder"`
	OverviewFolders   []string `toml:"overview_folders"`
	MaxLabelImages    int      `toml:"max_label_images"`
	MaxOverviewImages int      `toml:"max_overview_images"`
}

type RecordsConfig struct {
	Provider string `toml:"provider"`
	Table    string `toml:"table"`
	Region   string `toml:"region"`
	DSN      string `toml:"dsn"`
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type IdempotencyConfig struct {
	Enabled  bool   `toml:"enabled"`
	Provider string `toml:"provider"`
	RedisURL string `toml:"redis_url"`
	TTL      string `toml:"ttl"`
}

type PromptsConfig struct {
	Brand  string `toml:"brand"`
	System string `toml:"system"`
	User   string `toml:"user"`
}

type ChecklistsConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type Config struct {
	Server      ServerConfig      `toml:"server"`
	Judge       JudgeConfig       `toml:"judge"`
	Storage     StorageConfig     `toml:"storage"`
	References  ReferencesConfig  `toml:"references"`
	Records     RecordsConfig     `toml:"records"`
	Idempotency IdempotencyConfig `toml:"idempotency"`
	Prompts     PromptsConfig     `toml:"prompts"`
	Checklists  ChecklistsConfig  `toml:"checklists"`
	Log         LogConfig         `toml:"log"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Mode:         "release",
			AllowOrigins: []string{"*"},
			Version:      "1.0.0",
			Service:      "shelfcheck",
		},
		Judge: JudgeConfig{
			Provider:         "bedrock",
			Model:            "anthropic.claude-3-5-sonnet-20240620-v1:0",
			Region:           "us-east-1",
			AnthropicVersion: "bedrock-2023-05-31",
			MaxTokens:        4096,
			Temperature:      0,
		},
		Storage: StorageConfig{
			Provider:      "s3",
			Region:        "us-east-1",
			PresignExpiry: "15m",
		},
		References: ReferencesConfig{
			Prefix:            "dataset",
			LabelFolder:       "TEM NL",
			OverviewFolders:   []string{"HÌNH WEB"},
			MaxLabelImages:    2,
			MaxOverviewImages: 3,
		},
		Records: RecordsConfig{
			Provider: "memory",
			Region:   "us-east-1",
			URI:      "bolt://localhost:7687",
		},
		Idempotency: IdempotencyConfig{
			Provider: "memory",
			TTL:      "24h",
		},
		Prompts: PromptsConfig{
			Brand: "Aqua",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load overlays the TOML file at path onto the defaults. A missing file
// leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. Numeric variables
// that do not parse are reported as errors.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}

	str("JUDGE_PROVIDER", &c.Judge.Provider)
	str("AWS_MODEL_ID", &c.Judge.Model)
	str("AWS_MODEL_REGION", &c.Judge.Region)
	str("JUDGE_API_KEY", &c.Judge.APIKey)
	str("JUDGE_BASE_URL", &c.Judge.BaseURL)
	num("AWS_MODEL_MAX_TOKENS", &c.Judge.MaxTokens)
	if v := strings.TrimSpace(getenv("AWS_MODEL_TEMPERATURE")); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("AWS_MODEL_TEMPERATURE: %w", err))
		} else {
			c.Judge.Temperature = t
		}
	}

	str("AWS_DATASET_BUCKET", &c.Storage.DatasetBucket)
	str("AWS_INPUT_IMG_VALIDATION_BUCKET", &c.Storage.UploadBucket)
	num("MAX_REFERENCE_LABEL_IMAGES", &c.References.MaxLabelImages)
	num("MAX_REFERENCE_OVERVIEW_IMAGES", &c.References.MaxOverviewImages)

	str("RECORDS_PROVIDER", &c.Records.Provider)
	str("RECORDS_DSN", &c.Records.DSN)
	str("MEMGRAPH_URI", &c.Records.URI)
	str("MEMGRAPH_USER", &c.Records.User)
	str("MEMGRAPH_PASSWORD", &c.Records.Password)
	if v := strings.TrimSpace(getenv("AWS_RESULT_TABLE")); v != "" {
		c.Records.Table = v
		if getenv("RECORDS_PROVIDER") == "" {
			c.Records.Provider = "dynamodb"
		}
	}

	if v := strings.TrimSpace(getenv("REDIS_URL")); v != "" {
		c.Idempotency.RedisURL = v
		c.Idempotency.Provider = "redis"
	}

	str("LOG_LEVEL", &c.Log.Level)
	num("PORT", &c.Server.Port)

	return errors.Join(errs...)
}

var (
	judgeProviders   = []string{"bedrock", "claude", "gemini", "openai", "ollama"}
	storageProviders = []string{"s3", "dir"}
	recordProviders  = []string{"memory", "dynamodb", "memgraph", "neo4j", "postgres", "sqlite"}
	guardProviders   = []string{"memory", "redis"}
)

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(oneOf(c.Judge.Provider, judgeProviders), "judge.provider %q must be one of %s", c.Judge.Provider, strings.Join(judgeProviders, ", "))
	check(c.Judge.Model != "", "judge.model is required")
	check(c.Judge.MaxTokens > 0, "judge.max_tokens must be positive")
	check(c.Judge.Temperature >= 0 && c.Judge.Temperature <= 1, "judge.temperature must be within [0, 1]")

	check(oneOf(c.Storage.Provider, storageProviders), "storage.provider %q must be one of %s", c.Storage.Provider, strings.Join(storageProviders, ", "))
	if _, err := c.Storage.PresignTTL(); err != nil {
		errs = append(errs, fmt.Errorf("storage.presign_expiry: %w", err))
	}

	check(c.References.MaxLabelImages > 0, "references.max_label_images must be positive")
	check(c.References.MaxOverviewImages > 0, "references.max_overview_images must be positive")
	check(c.References.LabelFolder != "", "references.label_folder is required")
	check(len(c.References.OverviewFolders) > 0, "references.overview_folders is required")

	check(oneOf(c.Records.Provider, recordProviders), "records.provider %q must be one of %s", c.Records.Provider, strings.Join(recordProviders, ", "))
	check(oneOf(c.Idempotency.Provider, guardProviders), "idempotency.provider %q must be one of %s", c.Idempotency.Provider, strings.Join(guardProviders, ", "))
	if _, err := c.Idempotency.TTLDuration(); err != nil {
		errs = append(errs, fmt.Errorf("idempotency.ttl: %w", err))
	}

	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port %d is out of range", c.Server.Port)

	return errors.Join(errs...)
}

func (s StorageConfig) PresignTTL() (time.Duration, error) {
	return positiveDuration(s.PresignExpiry)
}

func (i IdempotencyConfig) TTLDuration() (time.Duration, error) {
	return positiveDuration(i.TTL)
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
