package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOutputDir = "data/processed"
	DefaultConfig    = "config.json"
)

// DefaultKeywords is the keyword set used by the keyword classifier when none is configured.
var DefaultKeywords = []string{
	"GPU", "graphics card", "video card", "NVIDIA", "AMD",
	"GeForce", "Radeon", "RTX", "GTX", "RX", "DLSS", "ray tracing",
}

type Config struct {
	Output     OutputConfig     `yaml:"output"`
	Cache      CacheConfig      `yaml:"cache"`
	Channel    ChannelConfig    `yaml:"channel"`
	AI         AIConfig         `yaml:"ai"`
	Classifier ClassifierConfig `yaml:"classifier"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Browser    BrowserConfig    `yaml:"browser"`
	Schedule   string           `yaml:"schedule"`
}

type OutputConfig struct {
	ProcessedDataPath string `yaml:"processed_data_path"`
	FilePrefix        string `yaml:"file_prefix"`
	PartialEvery      int    `yaml:"partial_every"`
}

type CacheConfig struct {
	Dir string `yaml:"dir"`
}

type ChannelConfig struct {
	Handle       string `yaml:"handle"`
	MaxVideos    int    `yaml:"max_videos"`
	LookbackDays int    `yaml:"lookback_days"`
	Concurrency  int    `yaml:"concurrency"`
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
	Model        string `yaml:"model"`
	UseLLM       *bool  `yaml:"use_llm"`
	Fallback     *bool  `yaml:"fallback"`
}

type ClassifierConfig struct {
	Keywords []string `yaml:"keywords"`
}

type YouTubeConfig struct {
	APIKey            string  `yaml:"api_key"`
	ClientID          string  `yaml:"client_id"`
	ClientSecret      string  `yaml:"client_secret"`
	TokenFile         string  `yaml:"token_file"`
	YtdlpPath         string  `yaml:"ytdlp_path"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type BrowserConfig struct {
	Headless              *bool  `yaml:"headless"`
	ExecPath              string `yaml:"exec_path"`
	ElementTimeoutSeconds int    `yaml:"element_timeout_seconds"`
	ScrollCount           int    `yaml:"scroll_count"`
	ScrollWaitSeconds     int    `yaml:"scroll_wait_seconds"`
}

// ElementTimeout is the bounded wait for a rendered element.
func (b BrowserConfig) ElementTimeout() time.Duration {
	return time.Duration(b.ElementTimeoutSeconds) * time.Second
}

func (b BrowserConfig) ScrollWait() time.Duration {
	return time.Duration(b.ScrollWaitSeconds) * time.Second
}

func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

func (a AIConfig) LLMEnabled() bool {
	return a.UseLLM == nil || *a.UseLLM
}

func (a AIConfig) FallbackEnabled() bool {
	return a.Fallback == nil || *a.Fallback
}

// Path resolves the config file location: explicit path, then CONFIG_FILE, then config.json.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("CONFIG_FILE"); env != "" {
		return env
	}
	return DefaultConfig
}

// Load reads and parses the config document. JSON documents are accepted as YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.checkOAuthPair()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault never fails: a missing or malformed document is logged and replaced by defaults.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Printf("Warning: %v; using default output directory %s", err, DefaultOutputDir)
		return Default()
	}
	return cfg
}

// Default returns a config populated only from defaults and the environment.
func Default() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.checkOAuthPair()
	return cfg
}

func (c *Config) applyEnv() {
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
}

func (c *Config) applyDefaults() {
	if c.Output.ProcessedDataPath == "" {
		c.Output.ProcessedDataPath = DefaultOutputDir
	}
	if c.Output.FilePrefix == "" {
		c.Output.FilePrefix = "gpu_videos"
	}
	if c.Output.PartialEvery <= 0 {
		c.Output.PartialEvery = 5
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "cache"
	}
	if c.Channel.Handle == "" {
		c.Channel.Handle = "@geohotarchive"
	}
	if c.Channel.MaxVideos <= 0 {
		c.Channel.MaxVideos = 30
	}
	if c.Channel.LookbackDays <= 0 {
		c.Channel.LookbackDays = 365
	}
	if c.Channel.Concurrency <= 0 {
		c.Channel.Concurrency = 4
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if len(c.Classifier.Keywords) == 0 {
		c.Classifier.Keywords = append([]string(nil), DefaultKeywords...)
	}
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.YouTube.YtdlpPath == "" {
		c.YouTube.YtdlpPath = "yt-dlp"
	}
	if c.YouTube.RequestsPerSecond <= 0 {
		c.YouTube.RequestsPerSecond = 2
	}
	if c.Browser.ElementTimeoutSeconds <= 0 {
		c.Browser.ElementTimeoutSeconds = 10
	}
	if c.Browser.ScrollCount <= 0 {
		c.Browser.ScrollCount = 3
	}
	if c.Browser.ScrollWaitSeconds <= 0 {
		c.Browser.ScrollWaitSeconds = 2
	}
	if c.Schedule == "" {
		c.Schedule = "0 0 9 * * *" // Daily at 9 AM
	}
}

func (c *Config) validate() error {
	for _, kw := range c.Classifier.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("classifier keywords must not be blank")
		}
	}
	return nil
}

// checkOAuthPair drops a half-configured OAuth client so the Data API stage
// is skipped instead of the whole config being rejected.
func (c *Config) checkOAuthPair() {
	if (c.YouTube.ClientID == "") == (c.YouTube.ClientSecret == "") {
		return
	}
	log.Printf("Warning: YouTube OAuth needs both client ID and secret (set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET); OAuth disabled")
	c.YouTube.ClientID = ""
	c.YouTube.ClientSecret = ""
}
