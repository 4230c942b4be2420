package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config" yaml:"basic_config"`
	Completion  CompletionConfig          `json:"completion" yaml:"completion"`
	Providers   map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Cache       CacheConfig               `json:"cache" yaml:"cache"`
	Redis       RedisConfig               `json:"redis" yaml:"redis"`
	RateLimit   RateLimitConfig           `json:"rate_limit" yaml:"rate_limit"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Model   string `json:"model" yaml:"model"`
	APIKey  string `json:"api_key" yaml:"api_key"`
}

type BasicConfig struct {
	ServerAddress     string   `json:"server_address" yaml:"server_address"`
	StaticDir         string   `json:"static_dir" yaml:"static_dir"`
	AllowedOrigins    []string `json:"allowed_origins" yaml:"allowed_origins"`
	SecretKey         string   `json:"secret_key" yaml:"secret_key"`
	MaxUploadBytes    int64    `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	AllowedExtensions []string `json:"allowed_extensions" yaml:"allowed_extensions"`
	PromptCharBudget  int      `json:"prompt_char_budget" yaml:"prompt_char_budget"`
}

// CompletionConfig selects the provider and the generation parameters sent with every call.
type CompletionConfig struct {
	Provider       string  `json:"provider" yaml:"provider"`
	Model          string  `json:"model" yaml:"model"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature    float32 `json:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type CacheConfig struct {
	Backend    string `json:"backend" yaml:"backend"` // memory | redis
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds"`
	MaxEntries int    `json:"max_entries" yaml:"max_entries"`
}

type RedisConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// RateLimitConfig caps generate requests per client IP. Zero disables a window.
type RateLimitConfig struct {
	PerHour int `json:"per_hour" yaml:"per_hour"`
	PerDay  int `json:"per_day" yaml:"per_day"`
}

const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	DefaultMaxUploadBytes = 16 << 20
)

var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-3.5-turbo",
	ProviderClaude: "claude-3-5-haiku-latest",
	ProviderGemini: "gemini-2.0-flash",
}

var providerKeyEnv = map[string]string{
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderClaude: "ANTHROPIC_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		BasicConfig: BasicConfig{
			ServerAddress:     ":5002",
			StaticDir:         "static",
			AllowedOrigins:    []string{"*"},
			MaxUploadBytes:    DefaultMaxUploadBytes,
			AllowedExtensions: []string{".pdf"},
			PromptCharBudget:  4000,
		},
		Completion: CompletionConfig{
			Provider:       ProviderOpenAI,
			MaxTokens:      2000,
			Temperature:    0.3,
			TimeoutSeconds: 30,
		},
		Providers: map[string]ProviderConfig{},
		Cache: CacheConfig{
			Backend:    CacheBackendMemory,
			TTLSeconds: 300,
			MaxEntries: 100,
		},
		Redis: RedisConfig{
			Host: "127.0.0.1",
			Port: 6379,
		},
		RateLimit: RateLimitConfig{
			PerHour: 30,
			PerDay:  100,
		},
	}
}

// Load reads configuration from the provided path, applies environment
// overrides and validates the result. An empty path yields defaults.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for offline commands that never reach the completion provider.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("open config %s: %w", absPath, err)
	}

	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c); err != nil {
			return fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
	}

	if c.BasicConfig.StaticDir != "" && !filepath.IsAbs(c.BasicConfig.StaticDir) {
		c.BasicConfig.StaticDir = filepath.Join(filepath.Dir(absPath), c.BasicConfig.StaticDir)
	}
	return nil
}

func (c *Config) applyEnv() {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.BasicConfig.ServerAddress = ":" + port
		}
	}
	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		c.BasicConfig.AllowedOrigins = splitList(origins)
	}
	if secret := os.Getenv("SECRET_KEY"); secret != "" {
		c.BasicConfig.SecretKey = secret
	}
	if provider := strings.TrimSpace(os.Getenv("IRAC_PROVIDER")); provider != "" {
		c.Completion.Provider = strings.ToLower(provider)
	}
	if model := strings.TrimSpace(os.Getenv("IRAC_MODEL")); model != "" {
		c.Completion.Model = model
	}
	if backend := strings.TrimSpace(os.Getenv("IRAC_CACHE_BACKEND")); backend != "" {
		c.Cache.Backend = strings.ToLower(backend)
	}
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		host, port, ok := strings.Cut(addr, ":")
		c.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
	}
	for provider, env := range providerKeyEnv {
		key := strings.TrimSpace(os.Getenv(env))
		if key == "" {
			continue
		}
		if c.Providers == nil {
			c.Providers = map[string]ProviderConfig{}
		}
		p := c.Providers[provider]
		p.APIKey = key
		c.Providers[provider] = p
	}
}

func (c *Config) normalize() error {
	if c.BasicConfig.MaxUploadBytes <= 0 {
		c.BasicConfig.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(c.BasicConfig.AllowedExtensions) == 0 {
		c.BasicConfig.AllowedExtensions = []string{".pdf"}
	}
	for i, ext := range c.BasicConfig.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.BasicConfig.AllowedExtensions[i] = ext
	}
	if len(c.BasicConfig.AllowedOrigins) == 0 {
		c.BasicConfig.AllowedOrigins = []string{"*"}
	}
	if c.BasicConfig.SecretKey == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		c.BasicConfig.SecretKey = secret
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = ProviderOpenAI
	}
	if c.Completion.Model == "" {
		c.Completion.Model = c.Providers[c.Completion.Provider].Model
	}
	if c.Completion.Model == "" {
		c.Completion.Model = defaultModels[c.Completion.Provider]
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendMemory
	}
	return nil
}

// Validate reports configuration the service cannot start with.
func (c *Config) Validate() error {
	provider := c.Completion.Provider
	env, ok := providerKeyEnv[provider]
	if !ok {
		return fmt.Errorf("unsupported provider: %s", provider)
	}
	if strings.TrimSpace(c.Providers[provider].APIKey) == "" {
		return fmt.Errorf("%s environment variable is required", env)
	}
	if c.Completion.Model == "" {
		return errors.New("completion model must be configured")
	}
	if c.Completion.MaxTokens <= 0 {
		return errors.New("completion max_tokens must be positive")
	}
	if c.Completion.TimeoutSeconds <= 0 {
		return errors.New("completion timeout_seconds must be positive")
	}
	if c.BasicConfig.PromptCharBudget <= 0 {
		return errors.New("prompt_char_budget must be positive")
	}
	switch c.Cache.Backend {
	case CacheBackendMemory:
		if c.Cache.MaxEntries <= 0 {
			return errors.New("cache max_entries must be positive")
		}
	case CacheBackendRedis:
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}
	if c.Cache.TTLSeconds <= 0 {
		return errors.New("cache ttl_seconds must be positive")
	}
	return nil
}

// Provider returns the settings of the selected completion provider.
func (c *Config) Provider() ProviderConfig {
	return c.Providers[c.Completion.Provider]
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
