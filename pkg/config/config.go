package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"SignalDeck/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceCSV        = "csv"
	SourceSheets     = "sheets"
	SourceS3         = "s3"
	SourceClickHouse = "clickhouse"
)

// Quote providers.
const (
	QuoteProviderHTTP    = "http"
	QuoteProviderBinance = "binance"
)

// Cache types.
const (
	CacheMemory  = "memory"
	CacheRedis   = "redis"
	CacheLayered = "layered"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"console"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"100"`
		MaxBackups int    `yaml:"max_backups" default:"5"`
		MaxAgeDays int    `yaml:"max_age_days" default:"14"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimitRPS    float64       `yaml:"rate_limit_rps" default:"10"`
		RateLimitBurst  int           `yaml:"rate_limit_burst" default:"20"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Quotes struct {
		Provider string        `yaml:"provider" default:"http"`
		BaseURL  string        `yaml:"base_url" default:"https://api.binance.com"`
		Symbols  []string      `yaml:"symbols" default:"[\"BTCUSDT\",\"ETHUSDT\",\"SOLUSDT\",\"LINKUSDT\",\"AVAXUSDT\"]"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"quotes"`
	Source struct {
		Type string `yaml:"type" default:"csv"`
		CSV  struct {
			Path string `yaml:"path" default:"trading_log.csv"`
		} `yaml:"csv"`
		Sheets struct {
			CredentialsFile string `yaml:"credentials_file"`
			Spreadsheet     string `yaml:"spreadsheet" default:"Trading_Log"`
			SpreadsheetID   string `yaml:"spreadsheet_id"`
			Worksheet       string `yaml:"worksheet"`
		} `yaml:"sheets"`
		S3 struct {
			Bucket          string `yaml:"bucket"`
			Key             string `yaml:"key" default:"trading_log.csv"`
			Region          string `yaml:"region" default:"us-east-1"`
			Endpoint        string `yaml:"endpoint"`
			PathStyle       bool   `yaml:"path_style"`
			AccessKeyID     string `yaml:"access_key_id"`
			SecretAccessKey string `yaml:"secret_access_key"`
		} `yaml:"s3"`
		ClickHouse struct {
			Host     string        `yaml:"host" default:"localhost"`
			Port     int           `yaml:"port" default:"9000"`
			Database string        `yaml:"database" default:"default"`
			User     string        `yaml:"user" default:"default"`
			Password string        `yaml:"password"`
			UseHTTP  bool          `yaml:"use_http"`
			Table    string        `yaml:"table" default:"trading_log"`
			OrderBy  string        `yaml:"order_by" default:"Fecha"`
			Timeout  time.Duration `yaml:"timeout" default:"10s"`
		} `yaml:"clickhouse"`
	} `yaml:"source"`
	Normalize struct {
		Strict   bool   `yaml:"strict"`
		Timezone string `yaml:"timezone" default:"UTC"`
	} `yaml:"normalize"`
	Aggregate struct {
		Latest string `yaml:"latest" default:"timestamp"`
	} `yaml:"aggregate"`
	Refresh struct {
		Interval     time.Duration `yaml:"interval" default:"30s"`
		CycleTimeout time.Duration `yaml:"cycle_timeout" default:"20s"`
	} `yaml:"refresh"`
	Cache struct {
		Type  string `yaml:"type" default:"memory"`
		Redis struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"signaldeck"`
			PoolSize int    `yaml:"pool_size" default:"10"`
			MinIdle  int    `yaml:"min_idle" default:"2"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled     bool     `yaml:"enabled"`
		Brokers     []string `yaml:"brokers"`
		ViewTopic   string   `yaml:"view_topic" default:"signaldeck.views"`
		LogTopic    string   `yaml:"log_topic" default:"signaldeck.logs"`
		Compression string   `yaml:"compression" default:"gzip"`
		Producer    struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error; defaults plus environment are used instead.
func LoadWithEnv(path string) (*Config, error) {
	var c *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c = Default()
	} else {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SOURCE_TYPE"); v != "" {
		c.Source.Type = v
	}
	if v := getenv("SOURCE_CSV_PATH"); v != "" {
		c.Source.CSV.Path = v
	}
	if v := getenv("SHEETS_CREDENTIALS_FILE"); v != "" {
		c.Source.Sheets.CredentialsFile = v
	} else if v := getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && c.Source.Sheets.CredentialsFile == "" {
		c.Source.Sheets.CredentialsFile = v
	}
	if v := getenv("SHEETS_SPREADSHEET"); v != "" {
		c.Source.Sheets.Spreadsheet = v
	}
	if v := getenv("QUOTE_SYMBOLS"); v != "" {
		c.Quotes.Symbols = util.SplitList(v)
	}
	if v := getenv("REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Refresh.Interval = d
		}
	}
	if v := getenv("HTTP_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			c.Cache.Redis.Port = util.ParseIntDefault(port, c.Cache.Redis.Port)
		}
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Quotes.Symbols) == 0 {
		return fmt.Errorf("quotes.symbols cannot be empty")
	}
	for _, s := range c.Quotes.Symbols {
		if strings.TrimSpace(s) == "" || strings.ContainsAny(s, "\" ,") {
			return fmt.Errorf("quotes.symbols contains invalid ticker %q", s)
		}
	}
	if c.Quotes.Provider != QuoteProviderHTTP && c.Quotes.Provider != QuoteProviderBinance {
		return fmt.Errorf("quotes.provider must be 'http' or 'binance', got '%s'", c.Quotes.Provider)
	}
	if c.Quotes.Timeout <= 0 {
		return fmt.Errorf("quotes.timeout must be positive")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}

	switch c.Source.Type {
	case SourceCSV:
		if c.Source.CSV.Path == "" {
			return fmt.Errorf("source.csv.path is required")
		}
	case SourceSheets:
		if c.Source.Sheets.Spreadsheet == "" && c.Source.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("source.sheets.spreadsheet or source.sheets.spreadsheet_id is required")
		}
	case SourceS3:
		if c.Source.S3.Bucket == "" || c.Source.S3.Key == "" {
			return fmt.Errorf("source.s3.bucket and source.s3.key are required")
		}
	case SourceClickHouse:
		if c.Source.ClickHouse.Host == "" || c.Source.ClickHouse.Table == "" {
			return fmt.Errorf("source.clickhouse.host and source.clickhouse.table are required")
		}
	default:
		return fmt.Errorf("source.type must be one of csv, sheets, s3, clickhouse, got '%s'", c.Source.Type)
	}

	if _, err := time.LoadLocation(c.Normalize.Timezone); err != nil {
		return fmt.Errorf("normalize.timezone: %w", err)
	}
	if c.Aggregate.Latest != "timestamp" && c.Aggregate.Latest != "position" {
		return fmt.Errorf("aggregate.latest must be 'timestamp' or 'position', got '%s'", c.Aggregate.Latest)
	}
	switch c.Cache.Type {
	case CacheMemory, CacheRedis, CacheLayered:
	default:
		return fmt.Errorf("cache.type must be memory, redis or layered, got '%s'", c.Cache.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// Location returns the configured timezone for naive timestamps.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Normalize.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
