package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if c.Refresh.Interval != 30*time.Second || c.Quotes.Timeout != 5*time.Second {
		t.Fatalf("interval=%v timeout=%v", c.Refresh.Interval, c.Quotes.Timeout)
	}
	want := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "LINKUSDT", "AVAXUSDT"}
	if strings.Join(c.Quotes.Symbols, ",") != strings.Join(want, ",") {
		t.Fatalf("symbols %v", c.Quotes.Symbols)
	}
	if c.Source.Sheets.Spreadsheet != "Trading_Log" || c.Source.Type != SourceCSV {
		t.Fatalf("source defaults %+v", c.Source)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
quotes:
  symbols: [BTCUSDT]
  timeout: 2s
source:
  type: sheets
  sheets:
    credentials_file: /secrets/sa.json
normalize:
  strict: true
  timezone: Europe/Madrid
aggregate:
  latest: position
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Environment != "production" || len(c.Quotes.Symbols) != 1 || c.Quotes.Timeout != 2*time.Second {
		t.Fatalf("unexpected %+v", c.Quotes)
	}
	if c.Source.Type != SourceSheets || c.Source.Sheets.Spreadsheet != "Trading_Log" {
		t.Fatalf("unexpected source %+v", c.Source.Sheets)
	}
	if !c.Normalize.Strict || c.Location().String() != "Europe/Madrid" {
		t.Fatalf("unexpected normalize %+v", c.Normalize)
	}
	if c.Refresh.Interval != 30*time.Second {
		t.Fatalf("default interval lost: %v", c.Refresh.Interval)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"source type":  "source:\n  type: ftp\n",
		"provider":     "quotes:\n  provider: carrier-pigeon\n",
		"symbols":      "quotes:\n  symbols: [\"BTC USDT\"]\n",
		"latest":       "aggregate:\n  latest: random\n",
		"timezone":     "normalize:\n  timezone: Mars/Olympus\n",
		"s3 bucket":    "source:\n  type: s3\n",
		"kafka broker": "kafka:\n  enabled: true\n",
		"cache":        "cache:\n  type: disk\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"SOURCE_TYPE":                    "s3",
		"QUOTE_SYMBOLS":                  "BTCUSDT, ETHUSDT",
		"REFRESH_INTERVAL":               "1m",
		"HTTP_PORT":                      "9090",
		"REDIS_ADDR":                     "cache:6380",
		"KAFKA_BROKERS":                  "k1:9092,k2:9092",
		"GOOGLE_APPLICATION_CREDENTIALS": "/gcp.json",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if c.Source.Type != SourceS3 || c.Refresh.Interval != time.Minute || c.Server.Port != 9090 {
		t.Fatalf("unexpected %+v", c)
	}
	if len(c.Quotes.Symbols) != 2 || c.Quotes.Symbols[1] != "ETHUSDT" {
		t.Fatalf("symbols %v", c.Quotes.Symbols)
	}
	if c.Cache.Redis.Host != "cache" || c.Cache.Redis.Port != 6380 {
		t.Fatalf("redis %s:%d", c.Cache.Redis.Host, c.Cache.Redis.Port)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka %+v", c.Kafka)
	}
	if c.Source.Sheets.CredentialsFile != "/gcp.json" {
		t.Fatalf("credentials %q", c.Source.Sheets.CredentialsFile)
	}
}

func TestLoadWithEnvMissingFileUsesDefaults(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Source.Type == "" {
		t.Fatalf("defaults not applied")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\nsource:\n  csv:\n    path: /data/log.csv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Source.CSV.Path != "/data/log.csv" {
		t.Fatalf("path %q", c.Source.CSV.Path)
	}
}
