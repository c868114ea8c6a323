package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"casestudy/internal/domain"
)

// PaperSize is a page size in inches.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Config is the full service configuration.
type Config struct {
	Env string `yaml:"env"`

	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Render struct {
		BaseDir string `yaml:"base_dir"`
		Author  string `yaml:"author"`
		// Engine is "native" (gofpdf) or "chrome" (headless Chrome print).
		Engine string `yaml:"engine"`
		// TTF faces for the native engine; empty uses the bundled DejaVu set.
		FontRegular string `yaml:"font_regular"`
		FontBold    string `yaml:"font_bold"`
		FontItalic  string `yaml:"font_italic"`
	} `yaml:"render"`

	PDF struct {
		DefaultPaper    string               `yaml:"default_paper"`
		PaperSizes      map[string]PaperSize `yaml:"paper_sizes"`
		Margin          float64              `yaml:"margin"`
		TimeoutSecs     int                  `yaml:"timeout_secs"`
		ChromePath      string               `yaml:"chrome_path"`
		ChromeNoSandbox bool                 `yaml:"chrome_no_sandbox"`
		ChromePoolSize  int                  `yaml:"chrome_pool_size"`
		UserDataDir     string               `yaml:"user_data_dir"`
	} `yaml:"pdf"`

	Cache struct {
		RedisHost          string        `yaml:"redis_host"`
		SearchCacheEnabled bool          `yaml:"search_cache_enabled"`
		SearchCacheTTL     time.Duration `yaml:"search_cache_ttl"`
		SearchCacheDB      int           `yaml:"redis_search_db"`
		RateLimitDB        int           `yaml:"redis_rate_db"`
	} `yaml:"cache"`

	Auth struct {
		Enabled        bool          `yaml:"enabled"`
		PostgresDSN    string        `yaml:"postgres_dsn"`
		ReloadInterval time.Duration `yaml:"token_reload_interval"`
	} `yaml:"auth"`

	RateLimiter struct {
		Interval               time.Duration `yaml:"interval"`
		EnableUserLimiter      bool          `yaml:"enable_user_limiter"`
		UserLimit              int           `yaml:"user_limit"`
		EnableTokenRateLimiter bool          `yaml:"enable_token_rate_limiter"`
	} `yaml:"rate_limiter"`

	Arcade struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		UserID  string        `yaml:"user_id"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"arcade"`

	Search struct {
		Enabled        bool   `yaml:"enabled"`
		ToolName       string `yaml:"tool_name"`
		DefaultResults int    `yaml:"default_results"`
	} `yaml:"search"`

	Mail struct {
		Enabled  bool   `yaml:"enabled"`
		ToolName string `yaml:"tool_name"`
	} `yaml:"mail"`

	Cohere struct {
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		EmbedModel  string        `yaml:"embed_model"`
		RerankModel string        `yaml:"rerank_model"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"cohere"`

	RAG struct {
		Enabled      bool   `yaml:"enabled"`
		DSN          string `yaml:"dsn"`
		Table        string `yaml:"table"`
		Dimension    int    `yaml:"dimension"`
		DefaultLimit int    `yaml:"default_limit"`
		RerankTopK   int    `yaml:"rerank_top_k"`
		ChunkSize    int    `yaml:"chunk_size"`
		ChunkOverlap int    `yaml:"chunk_overlap"`
	} `yaml:"rag"`

	Agent struct {
		Enabled  bool   `yaml:"enabled"`
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model"`
		MaxTurns int    `yaml:"max_turns"`
	} `yaml:"agent"`
}

// Load reads the configuration from CONFIG_PATH (default config.yaml). A
// .env file in the working directory is loaded first when present.
func Load() Config {
	_ = godotenv.Load()
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads the YAML file at path, applies environment overrides and
// defaults, and panics on invalid values. A missing file yields a
// defaults-only configuration.
func LoadFrom(path string) Config {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: parse %s: %v", path, err))
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		panic(err.Error())
	}
	return cfg
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.Arcade.APIKey, "ARCADE_API_KEY")
	override(&cfg.Arcade.UserID, "ARCADE_USER_ID")
	override(&cfg.Cohere.APIKey, "COHERE_API_KEY")
	override(&cfg.Agent.APIKey, "LLM_API_KEY")
	override(&cfg.Agent.BaseURL, "LLM_BASE_URL")
	override(&cfg.Agent.Model, "LLM_MODEL")
	override(&cfg.RAG.DSN, "VECTOR_DSN")
	override(&cfg.Auth.PostgresDSN, "AUTH_POSTGRES_DSN")
	override(&cfg.Cache.RedisHost, "REDIS_HOST")
	override(&cfg.Render.BaseDir, "CASE_STUDY_DIR")
	// Allow common container env var to override chrome_path.
	if cfg.PDF.ChromePath == "" {
		override(&cfg.PDF.ChromePath, "CHROME_BIN")
	}
	override(&cfg.Env, "APP_ENV")
}

func applyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":4111"
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Render.BaseDir == "" {
		cfg.Render.BaseDir = DefaultDocumentDir()
	}
	if cfg.Render.Author == "" {
		cfg.Render.Author = "Prepared by the Case Study Agent"
	}
	if cfg.Render.Engine == "" {
		cfg.Render.Engine = "native"
	}
	if cfg.PDF.DefaultPaper == "" {
		cfg.PDF.DefaultPaper = "A4"
	}
	if len(cfg.PDF.PaperSizes) == 0 {
		cfg.PDF.PaperSizes = map[string]PaperSize{
			"A4":     {Width: 8.27, Height: 11.69},
			"LETTER": {Width: 8.5, Height: 11},
		}
	}
	if cfg.PDF.Margin == 0 {
		cfg.PDF.Margin = 0.7
	}
	if cfg.PDF.TimeoutSecs == 0 {
		cfg.PDF.TimeoutSecs = 30
	}
	if cfg.Cache.SearchCacheTTL == 0 {
		cfg.Cache.SearchCacheTTL = 10 * time.Minute
	}
	if cfg.Auth.ReloadInterval == 0 {
		cfg.Auth.ReloadInterval = time.Minute
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = time.Minute
	}
	if cfg.Arcade.BaseURL == "" {
		cfg.Arcade.BaseURL = "https://api.arcade.dev"
	}
	if cfg.Arcade.Timeout == 0 {
		cfg.Arcade.Timeout = 30 * time.Second
	}
	if cfg.Search.ToolName == "" {
		cfg.Search.ToolName = "Google.Search"
	}
	if cfg.Search.DefaultResults == 0 {
		cfg.Search.DefaultResults = 5
	}
	if cfg.Mail.ToolName == "" {
		cfg.Mail.ToolName = "Google.SendEmail"
	}
	if cfg.Cohere.BaseURL == "" {
		cfg.Cohere.BaseURL = "https://api.cohere.com"
	}
	if cfg.Cohere.EmbedModel == "" {
		cfg.Cohere.EmbedModel = "embed-v4.0"
	}
	if cfg.Cohere.RerankModel == "" {
		cfg.Cohere.RerankModel = "rerank-v3.5"
	}
	if cfg.Cohere.Timeout == 0 {
		cfg.Cohere.Timeout = 30 * time.Second
	}
	if cfg.RAG.Table == "" {
		cfg.RAG.Table = "case_study_guide"
	}
	if cfg.RAG.Dimension == 0 {
		cfg.RAG.Dimension = 1536
	}
	if cfg.RAG.DefaultLimit == 0 {
		cfg.RAG.DefaultLimit = 5
	}
	if cfg.RAG.RerankTopK == 0 {
		cfg.RAG.RerankTopK = 3
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1200
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 150
	}
	if cfg.Agent.BaseURL == "" {
		cfg.Agent.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = "gemini-2.0-flash"
	}
	if cfg.Agent.MaxTurns == 0 {
		cfg.Agent.MaxTurns = 10
	}
}

func validate(cfg Config) error {
	switch cfg.Render.Engine {
	case "native", "chrome":
	default:
		return fmt.Errorf("config: render.engine must be 'native' or 'chrome', got %q", cfg.Render.Engine)
	}
	if _, ok := cfg.PDF.PaperSizes[cfg.PDF.DefaultPaper]; !ok {
		return fmt.Errorf("config: pdf.default_paper %q is not in pdf.paper_sizes", cfg.PDF.DefaultPaper)
	}
	if cfg.PDF.TimeoutSecs < 0 {
		return errors.New("config: pdf.timeout_secs must not be negative")
	}
	if cfg.PDF.ChromePoolSize < 0 {
		return errors.New("config: pdf.chrome_pool_size must not be negative")
	}
	if cfg.RateLimiter.Interval < 0 {
		return errors.New("config: rate_limiter.interval must be positive")
	}
	if cfg.RateLimiter.UserLimit < 0 {
		return errors.New("config: rate_limiter.user_limit must not be negative")
	}
	if cfg.Auth.ReloadInterval < 0 {
		return errors.New("config: auth.token_reload_interval must be positive")
	}
	if cfg.Search.DefaultResults < 0 || cfg.RAG.DefaultLimit < 0 || cfg.RAG.RerankTopK < 0 {
		return errors.New("config: result limits must not be negative")
	}
	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		return errors.New("config: rag.chunk_overlap must be smaller than rag.chunk_size")
	}
	return nil
}

// Require reports every value that an enabled feature needs but that is
// absent. The returned error wraps domain.ErrMissingConfiguration.
func (c Config) Require() error {
	var missing []string
	if c.Search.Enabled || c.Mail.Enabled {
		missing = append(missing, c.missingArcade()...)
	}
	if c.RAG.Enabled {
		missing = append(missing, c.missingRAG()...)
	}
	if c.Agent.Enabled && c.Agent.APIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if c.Auth.Enabled && c.Auth.PostgresDSN == "" {
		missing = append(missing, "AUTH_POSTGRES_DSN")
	}
	return missingError(missing)
}

// RequireRAG checks only what retrieval and ingestion need, whatever else is
// enabled.
func (c Config) RequireRAG() error {
	return missingError(c.missingRAG())
}

func (c Config) missingArcade() []string {
	var out []string
	if c.Arcade.APIKey == "" {
		out = append(out, "ARCADE_API_KEY")
	}
	if c.Arcade.UserID == "" {
		out = append(out, "ARCADE_USER_ID")
	}
	return out
}

func (c Config) missingRAG() []string {
	var out []string
	if c.Cohere.APIKey == "" {
		out = append(out, "COHERE_API_KEY")
	}
	if c.RAG.DSN == "" {
		out = append(out, "VECTOR_DSN")
	}
	return out
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrMissingConfiguration, strings.Join(missing, ", "))
}

// DefaultDocumentDir is <home>/Documents/case-studies, or a relative
// case-studies directory when the home directory cannot be resolved.
func DefaultDocumentDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "case-studies"
	}
	return filepath.Join(home, "Documents", "case-studies")
}
