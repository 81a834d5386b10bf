package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath 默认配置文件路径
const DefaultPath = "config.yaml"

// 环境变量名，优先级高于配置文件
const (
	EnvNewsAPIKey  = "NEWSAPI_KEY"
	EnvRapidAPIKey = "RAPIDAPI_KEY"
	EnvDatabase    = "NEWS_GATHER_DATABASE"
)

// 配置校验错误
var (
	ErrNoCredentials     = errors.New("no api keys configured: set news_api.api_key or rapid_api.api_key")
	ErrInvalidTimeout    = errors.New("http.timeout_sec must be non-negative")
	ErrInvalidRate       = errors.New("rate.rpm and rate.burst must be non-negative")
	ErrInvalidPageSize   = errors.New("news_api.page_size must be between 0 and 100")
	ErrInvalidLogLevel   = errors.New("log.level must be one of: debug, info, warn, error")
	ErrMissingMongoNames = errors.New("output.mongo.database and output.mongo.collection are required when output.mongo.uri is set")
)

// Config 项目配置结构体
type Config struct {
	NewsAPI  NewsAPIConfig  `yaml:"news_api"`
	RapidAPI RapidAPIConfig `yaml:"rapid_api"`
	Output   OutputConfig   `yaml:"output"`
	HTTP     HTTPConfig     `yaml:"http"`
	Rate     RateConfig     `yaml:"rate"`
	Range    RangeConfig    `yaml:"range"`
	Enrich   EnrichConfig   `yaml:"enrich"`
	Log      LogConfig      `yaml:"log"`
}

// NewsAPIConfig 主数据源配置
type NewsAPIConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`
	Country  string `yaml:"country"`
	// PageSize 为 0 时使用数据源默认值 (100)
	PageSize int `yaml:"page_size"`
	// LegacyPageBound 只请求 1..page_count-1 页
	LegacyPageBound bool `yaml:"legacy_page_bound"`
}

// RapidAPIConfig 第二数据源配置
type RapidAPIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Host    string `yaml:"host"`
}

// OutputConfig 输出目标配置，路径为空表示未配置
type OutputConfig struct {
	Database string      `yaml:"database"`
	JSON     string      `yaml:"json"`
	Tabular  string      `yaml:"tabular"`
	Mongo    MongoConfig `yaml:"mongo"`
}

// MongoConfig MongoDB 输出配置
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// HTTPConfig HTTP 客户端配置
type HTTPConfig struct {
	TimeoutSec int `yaml:"timeout_sec"`
}

// RateConfig 请求限速，RPM 为 0 表示不限速
type RateConfig struct {
	RPM   int `yaml:"rpm"`
	Burst int `yaml:"burst"`
}

// RangeConfig 按天检索配置
type RangeConfig struct {
	ContinueOnError bool `yaml:"continue_on_error"`
}

// EnrichConfig 正文补全配置
type EnrichConfig struct {
	Enabled    bool `yaml:"enabled"`
	TimeoutSec int  `yaml:"timeout_sec"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		NewsAPI: NewsAPIConfig{
			BaseURL:  "https://newsapi.org",
			Language: "en",
			Country:  "us",
		},
		RapidAPI: RapidAPIConfig{
			BaseURL: "https://contextualwebsearch-websearch-v1.p.rapidapi.com",
			Host:    "contextualwebsearch-websearch-v1.p.rapidapi.com",
		},
		Output: OutputConfig{
			Mongo: MongoConfig{
				Database:   "news",
				Collection: "documents",
			},
		},
		HTTP:   HTTPConfig{TimeoutSec: 30},
		Rate:   RateConfig{Burst: 1},
		Enrich: EnrichConfig{TimeoutSec: 30},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig 从指定路径加载配置，未出现的字段保留默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// LoadEnv 加载 .env 文件，文件不存在不视为错误
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv 用环境变量覆盖配置中的凭据和数据库路径
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvNewsAPIKey); v != "" {
		c.NewsAPI.APIKey = v
	}
	if v := os.Getenv(EnvRapidAPIKey); v != "" {
		c.RapidAPI.APIKey = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Output.Database = v
	}
}

// Validate 校验配置结构，不检查凭据
func (c *Config) Validate() error {
	if c.HTTP.TimeoutSec < 0 || c.Enrich.TimeoutSec < 0 {
		return ErrInvalidTimeout
	}

	if c.Rate.RPM < 0 || c.Rate.Burst < 0 {
		return ErrInvalidRate
	}

	if c.NewsAPI.PageSize < 0 || c.NewsAPI.PageSize > 100 {
		return ErrInvalidPageSize
	}

	if c.Output.Mongo.URI != "" && (c.Output.Mongo.Database == "" || c.Output.Mongo.Collection == "") {
		return ErrMissingMongoNames
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// HasNewsAPI 是否配置了主数据源凭据
func (c *Config) HasNewsAPI() bool {
	return c.NewsAPI.APIKey != ""
}

// HasRapidAPI 是否配置了第二数据源凭据
func (c *Config) HasRapidAPI() bool {
	return c.RapidAPI.APIKey != ""
}

// Timeout 单次请求超时
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSec) * time.Second
}

// Timeout 正文抓取超时
func (e EnrichConfig) Timeout() time.Duration {
	if e.TimeoutSec == 0 {
		return 30 * time.Second
	}
	return time.Duration(e.TimeoutSec) * time.Second
}

// String 配置摘要，不输出凭据
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{NewsAPI: %t, RapidAPI: %t, Database: %q, JSON: %q, Tabular: %q, Mongo: %t}",
		c.HasNewsAPI(),
		c.HasRapidAPI(),
		c.Output.Database,
		c.Output.JSON,
		c.Output.Tabular,
		c.Output.Mongo.URI != "",
	)
}
