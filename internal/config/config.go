package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the complete application configuration
type AppConfig struct {
	Scraper    ScraperConfig    `yaml:"scraper"`
	Cache      CacheConfig      `yaml:"cache"`
	IO         IOConfig         `yaml:"io"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Proxies    ProxyConfig      `yaml:"proxies"`
	Browser    BrowserConfig    `yaml:"browser"`
	Filter     FilterConfig     `yaml:"filter"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
}

// ScraperConfig holds the fetch configuration
type ScraperConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Workers     int           `yaml:"workers"`
	RateLimit   time.Duration `yaml:"rate_limit"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	RetryJitter time.Duration `yaml:"retry_jitter"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgents  []string      `yaml:"user_agents,omitempty"`
}

// CacheConfig selects and configures the result cache.
// A non-empty RedisAddr switches the cache from files to Redis.
type CacheConfig struct {
	Dir           string        `yaml:"dir"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// IOConfig holds the input/output configuration
type IOConfig struct {
	InputFile    string `yaml:"input_file"`
	OutputFile   string `yaml:"output_file"`
	OutputFormat string `yaml:"output_format"`
}

// ExtractionConfig holds the ordered selector lists used per listing field.
// Earlier selectors win; later ones are legacy fallbacks.
type ExtractionConfig struct {
	Container []string `yaml:"container"`
	Title     []string `yaml:"title"`
	Price     []string `yaml:"price"`
	Rating    []string `yaml:"rating"`
	URL       []string `yaml:"url"`
}

// ProxyConfig holds the proxy configuration
type ProxyConfig struct {
	Enabled bool     `yaml:"enabled"`
	Rotate  bool     `yaml:"rotate"`
	List    []string `yaml:"list"`
	Auth    struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"auth"`
}

// BrowserConfig holds the headless browser configuration
type BrowserConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Headless    bool          `yaml:"headless"`
	WaitTime    time.Duration `yaml:"wait_time"`
	ScrollPause time.Duration `yaml:"scroll_pause"`
	MaxScrolls  int           `yaml:"max_scrolls"`
}

// browserNavigationAllowance covers navigation and overlay handling on top of
// the configured waits
const browserNavigationAllowance = 15 * time.Second

// RenderBudget is the shortest attempt timeout that lets a page finish its
// initial wait and every scroll
func (b BrowserConfig) RenderBudget() time.Duration {
	return b.WaitTime + time.Duration(b.MaxScrolls)*b.ScrollPause + browserNavigationAllowance
}

// FilterConfig holds default thresholds for the listing filter
type FilterConfig struct {
	Enabled    bool    `yaml:"enabled"`
	MinRating  float64 `yaml:"min_rating"`
	MinReviews int     `yaml:"min_reviews"`
}

// StorageConfig configures the optional listing archive
type StorageConfig struct {
	PostgresURL string `yaml:"postgres_url"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port string `yaml:"port"`
}

// Load loads the configuration from a YAML file on top of the defaults
func Load(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	return config, nil
}

// Default returns the configuration used when no file is given
func Default() *AppConfig {
	return &AppConfig{
		Scraper: ScraperConfig{
			BaseURL:     DefaultBaseURL,
			Workers:     3,
			RateLimit:   1 * time.Second,
			MaxRetries:  DefaultMaxRetries,
			RetryDelay:  DefaultRetryDelay,
			RetryJitter: DefaultRetryJitter,
			Timeout:     DefaultTimeout,
			UserAgents:  DefaultUserAgents,
		},
		Cache: CacheConfig{
			Dir: "cache",
			TTL: DefaultCacheTTL,
		},
		IO: IOConfig{
			OutputFile:   "results.json",
			OutputFormat: "json",
		},
		Extraction: DefaultExtraction(),
		Proxies: ProxyConfig{
			Rotate: true,
			List:   []string{},
		},
		Browser: BrowserConfig{
			Headless:    true,
			WaitTime:    5 * time.Second,
			ScrollPause: 1 * time.Second,
			MaxScrolls:  20,
		},
		Filter: FilterConfig{
			MinRating:  4.8,
			MinReviews: 50,
		},
		Server: ServerConfig{
			Port: "8000",
		},
	}
}

// CreateDefault creates a default configuration overridden by command-line values
func CreateDefault(numWorkers int, rateLimitDelay, retryDelay, timeout time.Duration, maxRetries int,
	inputFile, outputFile, cacheDir string, enableProxy, enableBrowser bool) *AppConfig {
	config := Default()
	config.Scraper.Workers = numWorkers
	config.Scraper.RateLimit = rateLimitDelay
	config.Scraper.RetryDelay = retryDelay
	config.Scraper.Timeout = timeout
	config.Scraper.MaxRetries = maxRetries
	config.IO.InputFile = inputFile
	config.IO.OutputFile = outputFile
	config.Cache.Dir = cacheDir
	config.Proxies.Enabled = enableProxy
	config.Browser.Enabled = enableBrowser
	config.applyDefaults()
	return config
}

// applyDefaults repairs zero values a partial file or flag set may leave behind
func (c *AppConfig) applyDefaults() {
	if len(c.Scraper.UserAgents) == 0 {
		c.Scraper.UserAgents = DefaultUserAgents
	}
	if c.Scraper.MaxRetries < 1 {
		c.Scraper.MaxRetries = DefaultMaxRetries
	}
	if c.Scraper.Timeout <= 0 {
		c.Scraper.Timeout = DefaultTimeout
	}
	if c.Browser.Enabled && c.Scraper.Timeout < c.Browser.RenderBudget() {
		c.Scraper.Timeout = c.Browser.RenderBudget()
	}
	if c.Scraper.Workers < 1 {
		c.Scraper.Workers = 1
	}
	if c.Scraper.BaseURL == "" {
		c.Scraper.BaseURL = DefaultBaseURL
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	defaults := DefaultExtraction()
	if len(c.Extraction.Container) == 0 {
		c.Extraction.Container = defaults.Container
	}
	if len(c.Extraction.Title) == 0 {
		c.Extraction.Title = defaults.Title
	}
	if len(c.Extraction.Price) == 0 {
		c.Extraction.Price = defaults.Price
	}
	if len(c.Extraction.Rating) == 0 {
		c.Extraction.Rating = defaults.Rating
	}
	if len(c.Extraction.URL) == 0 {
		c.Extraction.URL = defaults.URL
	}
}
