// Package config loads and validates the codelens configuration. A YAML
// file is read first when present, then environment variables override by
// key. The resulting Config is an immutable snapshot for the process
// lifetime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aqua777/codelens/schema"
)

// Provider names accepted for llm_provider and embed_provider.
const (
	ProviderOllama      = "ollama"
	ProviderOpenAI      = "openai"
	ProviderElectronHub = "electronhub"
)

// Routing strategies for documentation frameworks.
const (
	RoutingIndexed  = "indexed"
	RoutingContext7 = "context7"
	RoutingWeb      = "web"
)

// Config is the full configuration tree. Unknown YAML keys are retained by
// the decoder but ignored.
type Config struct {
	LLMProvider     string `yaml:"llm_provider"`
	FastModel       string `yaml:"fast_model"`
	ComplexModel    string `yaml:"complex_model"`
	ComplexAltModel string `yaml:"complex_alt_model"`

	EmbedProvider    string `yaml:"embed_provider"`
	OpenAIEmbedModel string `yaml:"openai_embed_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`
	OllamaBaseURL    string `yaml:"ollama_base_url"`

	QdrantURL        string `yaml:"qdrant_url"`
	CollectionPrefix string `yaml:"collection_prefix"`

	ServerHost string `yaml:"server_host"`
	ServerPort int    `yaml:"server_port"`

	RedisHost    string `yaml:"redis_host"`
	RedisPort    int    `yaml:"redis_port"`
	RedisEnabled bool   `yaml:"redis_enabled"`
	CacheTTLSecs int    `yaml:"cache_ttl_s"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	NumWorkers   int `yaml:"num_workers"`

	IndexMode    schema.IndexMode `yaml:"index_mode"`
	EnableHybrid bool             `yaml:"enable_hybrid"`
	CrawlDepth   int              `yaml:"crawl_depth"`

	Indexing      Indexing      `yaml:"indexing"`
	Documentation Documentation `yaml:"documentation"`

	StoragePath string `yaml:"storage_path"`

	// Secrets come from the environment only.
	OpenAIAPIKey       string `yaml:"-"`
	ElectronHubAPIKey  string `yaml:"-"`
	ElectronHubBaseURL string `yaml:"-"`
	SpiderAPIKey       string `yaml:"-"`
}

// Indexing controls which files the directory reader picks up.
type Indexing struct {
	Recursive       bool     `yaml:"recursive"`
	FileExtensions  []string `yaml:"file_extensions"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
	IncludePaths    []string `yaml:"include_paths"`
}

// Documentation configures docs corpora: offline sources, the refresh
// scheduler, auto-indexed frameworks and per-framework routing.
type Documentation struct {
	OfflineMode     bool                 `yaml:"offline_mode"`
	OfflineDocsPath string               `yaml:"offline_docs_path"`
	SharedDocsPath  string               `yaml:"shared_docs_path"`
	Refresh         Refresh              `yaml:"refresh"`
	AutoIndex       map[string]AutoIndex `yaml:"auto_index"`
	Routing         map[string]string    `yaml:"routing"`
}

// Refresh configures the background documentation refresh loop.
type Refresh struct {
	Enabled    bool     `yaml:"enabled"`
	Schedule   string   `yaml:"schedule"`
	Frameworks []string `yaml:"frameworks"`
}

// AutoIndex marks a framework whose docs are indexed automatically.
type AutoIndex struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

var envVarRef = regexp.MustCompile(`^\$\{(\w+)\}$`)

// Load reads the configuration from path (skipped when the file does not
// exist), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := expandEnvRefs(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, &schema.ConfigError{Key: path, Reason: fmt.Sprintf("invalid yaml: %v", err)}
			}
		case !os.IsNotExist(err):
			return nil, &schema.ConfigError{Key: path, Reason: err.Error()}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a config with every default applied and no file or
// environment overrides. Callers must still satisfy Validate before use.
func Defaults() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		LLMProvider:      ProviderOpenAI,
		FastModel:        "gpt-4o-mini",
		ComplexModel:     "gpt-4o",
		ComplexAltModel:  "gpt-4-turbo",
		EmbedProvider:    ProviderOpenAI,
		OpenAIEmbedModel: "text-embedding-3-small",
		OllamaEmbedModel: "nomic-embed-text",
		OllamaBaseURL:    "http://localhost:11434",
		QdrantURL:        "http://localhost:6333",
		CollectionPrefix: "codelens_",
		ServerHost:       "0.0.0.0",
		ServerPort:       8000,
		RedisHost:        "localhost",
		RedisPort:        6379,
		CacheTTLSecs:     3600,
		ChunkSize:        512,
		ChunkOverlap:     50,
		NumWorkers:       4,
		IndexMode:        schema.ModeVector,
		CrawlDepth:       2,
		StoragePath:      "./storage",
		Indexing: Indexing{
			Recursive:       true,
			FileExtensions:  []string{".py", ".js", ".md"},
			ExcludePatterns: []string{"node_modules", "__pycache__", ".git"},
		},
	}
}

// expandEnvRefs replaces whole-value ${VAR} references with the
// environment value, leaving the literal in place when the variable is
// unset.
func expandEnvRefs(data string) string {
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		idx := strings.Index(line, ": ")
		if idx < 0 {
			continue
		}
		val := strings.TrimSpace(line[idx+2:])
		if m := envVarRef.FindStringSubmatch(val); m != nil {
			if env, ok := os.LookupEnv(m[1]); ok {
				lines[i] = line[:idx+2] + env
			}
		}
	}
	return strings.Join(lines, "\n")
}

// applyEnv overrides config values from uppercased environment variables.
func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setStr(&c.LLMProvider, "LLM_PROVIDER")
	setStr(&c.FastModel, "FAST_MODEL")
	setStr(&c.ComplexModel, "COMPLEX_MODEL")
	setStr(&c.ComplexAltModel, "COMPLEX_ALT_MODEL")
	setStr(&c.EmbedProvider, "EMBED_PROVIDER")
	setStr(&c.OpenAIEmbedModel, "OPENAI_EMBED_MODEL")
	setStr(&c.OllamaEmbedModel, "OLLAMA_EMBED_MODEL")
	setStr(&c.OllamaBaseURL, "OLLAMA_BASE_URL")
	setStr(&c.QdrantURL, "QDRANT_URL")
	setStr(&c.CollectionPrefix, "COLLECTION_PREFIX")
	setStr(&c.ServerHost, "SERVER_HOST")
	setInt(&c.ServerPort, "SERVER_PORT")
	setStr(&c.RedisHost, "REDIS_HOST")
	setInt(&c.RedisPort, "REDIS_PORT")
	setBool(&c.RedisEnabled, "REDIS_ENABLED")
	setInt(&c.CacheTTLSecs, "CACHE_TTL_S")
	setInt(&c.ChunkSize, "CHUNK_SIZE")
	setInt(&c.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&c.NumWorkers, "NUM_WORKERS")
	setInt(&c.CrawlDepth, "CRAWL_DEPTH")
	setBool(&c.EnableHybrid, "ENABLE_HYBRID")
	setStr(&c.StoragePath, "STORAGE_PATH")
	if v := os.Getenv("INDEX_MODE"); v != "" {
		c.IndexMode = schema.IndexMode(v)
	}

	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.ElectronHubAPIKey = os.Getenv("ELECTRONHUB_API_KEY")
	c.ElectronHubBaseURL = os.Getenv("ELECTRONHUB_BASE_URL")
	c.SpiderAPIKey = os.Getenv("SPIDER_API_KEY")
}

// Validate checks that the chosen providers have the keys they need.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOllama:
		if c.OllamaBaseURL == "" {
			return &schema.ConfigError{Key: "ollama_base_url", Reason: "required for ollama provider"}
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return &schema.ConfigError{Key: "OPENAI_API_KEY", Reason: "required for openai provider"}
		}
	case ProviderElectronHub:
		if c.ElectronHubAPIKey == "" || c.ElectronHubBaseURL == "" {
			return &schema.ConfigError{Key: "ELECTRONHUB_API_KEY", Reason: "key and base url required for electronhub provider"}
		}
	default:
		return &schema.ConfigError{Key: "llm_provider", Reason: fmt.Sprintf("unknown provider %q", c.LLMProvider)}
	}

	switch c.EmbedProvider {
	case ProviderOllama:
	case ProviderOpenAI, ProviderElectronHub:
		if c.OpenAIAPIKey == "" && c.ElectronHubAPIKey == "" {
			return &schema.ConfigError{Key: "embed_provider", Reason: "openai embeddings need OPENAI_API_KEY"}
		}
	default:
		return &schema.ConfigError{Key: "embed_provider", Reason: fmt.Sprintf("unknown provider %q", c.EmbedProvider)}
	}

	if !c.IndexMode.Valid() {
		return &schema.ConfigError{Key: "index_mode", Reason: fmt.Sprintf("unknown mode %q", c.IndexMode)}
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return &schema.ConfigError{Key: "chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	if c.NumWorkers < 1 {
		return &schema.ConfigError{Key: "num_workers", Reason: "must be at least 1"}
	}
	for fw, strategy := range c.Documentation.Routing {
		switch strategy {
		case RoutingIndexed, RoutingContext7, RoutingWeb:
		default:
			return &schema.ConfigError{
				Key:    "documentation.routing." + fw,
				Reason: fmt.Sprintf("unknown strategy %q", strategy),
			}
		}
	}
	return nil
}

// CollectionName applies the configured prefix to a project name.
func (c *Config) CollectionName(project string) string {
	return c.CollectionPrefix + project
}

// RedisAddr returns the host:port address of the cache backend.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// ListenAddr is the HTTP server bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// CacheTTL returns the query-cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// ManifestDir is where collection manifests are persisted.
func (c *Config) ManifestDir() string {
	return filepath.Join(c.StoragePath, "manifests")
}

// GraphPersistDir is where graph stores persist, when offline docs
// storage is configured; empty means memory-only graphs.
func (c *Config) GraphPersistDir() string {
	if c.Documentation.OfflineDocsPath == "" {
		return ""
	}
	return filepath.Join(c.StoragePath, "graphs")
}
