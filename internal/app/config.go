package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/utils"
)

// Config is the immutable application configuration. It is loaded once in main
// and injected into each component at construction.
type Config struct {
	Port    string `yaml:"port"`
	LogMode string `yaml:"log_mode"`

	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Search   SearchConfig   `yaml:"search"`
	LLM      LLMConfig      `yaml:"llm"`
	Cache    CacheConfig    `yaml:"cache"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Router   RouterConfig   `yaml:"router"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SearchConfig struct {
	URL                string `yaml:"url"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	Index              string `yaml:"index"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // openai | google | ollama

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`

	GoogleAPIKey string `yaml:"google_api_key"`
	GeminiModel  string `yaml:"gemini_model"`

	OllamaBaseURL string `yaml:"ollama_base_url"`
	OllamaModel   string `yaml:"ollama_model"`

	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

type CacheConfig struct {
	TTL    time.Duration `yaml:"ttl"`
	Prefix string        `yaml:"prefix"`
}

type PipelineConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	StaleProcessing time.Duration `yaml:"stale_processing"`
	ProcessTimeout  time.Duration `yaml:"process_timeout"`
	WorkerPoolSize  int           `yaml:"worker_pool_size"`
	PollInterval    time.Duration `yaml:"poll_interval"`
}

type RouterConfig struct {
	MinKeywordScore   int    `yaml:"min_keyword_score"`
	DefaultDepartment string `yaml:"default_department"`
}

// LoadConfig reads configuration from the environment, then overlays an
// optional YAML file named by REAI_CONFIG_FILE.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:    utils.GetEnv("PORT", "2400", log),
		LogMode: utils.GetEnv("LOG_MODE", "development", log),
		Postgres: PostgresConfig{
			Host:     utils.GetEnv("POSTGRES_HOST", "localhost", log),
			Port:     utils.GetEnv("POSTGRES_PORT", "5432", log),
			User:     utils.GetEnv("POSTGRES_USER", "postgres", log),
			Password: utils.GetEnv("POSTGRES_PASSWORD", "", log),
			Name:     utils.GetEnv("POSTGRES_NAME", "reai", log),
		},
		Redis: RedisConfig{
			Addr:     utils.GetEnv("REDIS_ADDR", "localhost:6379", log),
			Password: utils.GetEnv("REDIS_PASSWORD", "", log),
			DB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
		},
		Search: SearchConfig{
			URL:                utils.GetEnv("OPENSEARCH_URL", "https://localhost:9200", log),
			Username:           utils.GetEnv("OPENSEARCH_USER", "admin", log),
			Password:           utils.GetEnv("OPENSEARCH_PASSWORD", "admin", log),
			Index:              utils.GetEnv("OPENSEARCH_INDEX", "reviews-v1", log),
			InsecureSkipVerify: utils.GetEnvAsBool("OPENSEARCH_INSECURE_SKIP_VERIFY", true, log),
		},
		LLM: LLMConfig{
			Provider:      utils.GetEnv("LLM_PROVIDER", "openai", log),
			OpenAIAPIKey:  utils.GetEnv("OPENAI_API_KEY", "", nil),
			OpenAIBaseURL: utils.GetEnv("OPENAI_BASE_URL", "", log),
			OpenAIModel:   utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log),
			GoogleAPIKey:  utils.GetEnv("GOOGLE_API_KEY", "", nil),
			GeminiModel:   utils.GetEnv("GEMINI_MODEL", "gemini-1.5-flash", log),
			OllamaBaseURL: utils.GetEnv("OLLAMA_BASE_URL", "http://localhost:11434", log),
			OllamaModel:   utils.GetEnv("OLLAMA_MODEL", "llama3", log),
			Temperature:   utils.GetEnvAsFloat("LLM_TEMPERATURE", 0.0, log),
			MaxTokens:     utils.GetEnvAsInt("LLM_MAX_TOKENS", 1024, log),
			Timeout:       time.Duration(utils.GetEnvAsInt("LLM_TIMEOUT_SECONDS", 60, log)) * time.Second,
			MaxRetries:    utils.GetEnvAsInt("LLM_MAX_RETRIES", 3, log),
		},
		Cache: CacheConfig{
			TTL:    time.Duration(utils.GetEnvAsInt("CACHE_TTL_SECONDS", 300, log)) * time.Second,
			Prefix: utils.GetEnv("CACHE_PREFIX", "reai", log),
		},
		Pipeline: PipelineConfig{
			MaxAttempts:     utils.GetEnvAsInt("PIPELINE_MAX_ATTEMPTS", 5, log),
			RetryDelay:      time.Duration(utils.GetEnvAsInt("PIPELINE_RETRY_DELAY_SECONDS", 30, log)) * time.Second,
			StaleProcessing: time.Duration(utils.GetEnvAsInt("PIPELINE_STALE_PROCESSING_SECONDS", 1800, log)) * time.Second,
			ProcessTimeout:  time.Duration(utils.GetEnvAsInt("PIPELINE_PROCESS_TIMEOUT_SECONDS", 120, log)) * time.Second,
			WorkerPoolSize:  utils.GetEnvAsInt("PIPELINE_WORKER_POOL_SIZE", 4, log),
			PollInterval:    time.Duration(utils.GetEnvAsInt("PIPELINE_POLL_INTERVAL_SECONDS", 1, log)) * time.Second,
		},
		Router: RouterConfig{
			MinKeywordScore:   utils.GetEnvAsInt("ROUTER_MIN_KEYWORD_SCORE", 1, log),
			DefaultDepartment: utils.GetEnv("ROUTER_DEFAULT_DEPARTMENT", "미배정", log),
		},
	}

	path := utils.GetEnv("REAI_CONFIG_FILE", "", log)
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
