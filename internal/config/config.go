package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"PriceScanner/internal/domain"
)

const (
	defaultTimezone = "UTC"
	defaultLogLevel = "info"
	defaultInterval = 15 * time.Minute
	defaultTimeout  = 20 * time.Second
	defaultMaxBody  = 16 << 20
	defaultDBDriver = "postgres"
	configPathEnv   = "PRICE_SCANNER_CONFIG"
	defaultFeedName = "default"
	defaultFeedURL  = "http://localhost:8080/api/price-analysis/xml"
	defaultOwnStore = "Minha Loja"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Export        ExportConfig       `yaml:"export"`
	Notifications NotificationConfig `yaml:"notifications"`
	Feeds         []FeedConfig       `yaml:"feeds"`
}

// LoggingConfig selects the slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the optional snapshot store. An empty DSN disables it.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines how often the watch loop re-analyzes feeds.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// FetchConfig tunes the feed HTTP client.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
}

// ExportConfig points at the CSV report; empty disables export.
type ExportConfig struct {
	CSVPath string `yaml:"csvPath"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// FeedConfig describes one price feed and how to read it.
type FeedConfig struct {
	Name             string   `yaml:"name"`
	URL              string   `yaml:"url"`
	OwnStores        []string `yaml:"ownStores"`
	ThresholdPercent float64  `yaml:"thresholdPercent"`
}

// Options converts the feed settings into parser options.
func (f FeedConfig) Options() domain.AnalysisOptions {
	return domain.AnalysisOptions{
		Stores:           domain.NewStoreSet(f.OwnStores...),
		ThresholdPercent: f.ThresholdPercent,
	}
}

type envOverrides struct {
	DatabaseDriver string `envconfig:"DATABASE_DRIVER"`
	DatabaseDSN    string `envconfig:"DATABASE_DSN"`
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `envconfig:"TELEGRAM_CHAT_ID"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	LogFormat      string `envconfig:"LOG_FORMAT"`
	FeedURL        string `envconfig:"FEED_URL"`
	ExportCSVPath  string `envconfig:"EXPORT_CSV_PATH"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg, err := Parse(raw)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Feed returns the feed with the given name.
func (c Config) Feed(name string) (FeedConfig, bool) {
	for _, f := range c.Feeds {
		if f.Name == name {
			return f, true
		}
	}
	return FeedConfig{}, false
}

func (c *Config) applyEnvOverrides() {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		log.Printf("config: cannot read environment: %v", err)
		return
	}

	if env.DatabaseDriver != "" {
		c.Database.Driver = env.DatabaseDriver
	}
	if env.DatabaseDSN != "" {
		c.Database.DSN = env.DatabaseDSN
	}
	if env.TelegramToken != "" {
		c.Notifications.Telegram.BotToken = env.TelegramToken
	}
	if env.TelegramChatID != "" {
		c.Notifications.Telegram.ChatID = env.TelegramChatID
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Logging.Format = env.LogFormat
	}
	if env.FeedURL != "" && len(c.Feeds) > 0 {
		c.Feeds[0].URL = env.FeedURL
	}
	if env.ExportCSVPath != "" {
		c.Export.CSVPath = env.ExportCSVPath
	}
}

func (c *Config) normalize() {
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Database.Driver == "" {
		c.Database.Driver = defaultDBDriver
	}
	if c.Scheduler.Interval <= 0 {
		c.Scheduler.Interval = defaultInterval
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = defaultTimeout
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		c.Fetch.MaxBodyBytes = defaultMaxBody
	}
	if len(c.Feeds) == 0 {
		c.Feeds = defaultConfig().Feeds
	}
	for i := range c.Feeds {
		if c.Feeds[i].ThresholdPercent <= 0 {
			c.Feeds[i].ThresholdPercent = domain.DefaultThresholdPercent
		}
	}
	c.bindTimezone()
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.MaxBodyBytes > 0 {
		base.Fetch.MaxBodyBytes = override.Fetch.MaxBodyBytes
	}

	if override.Export.CSVPath != "" {
		base.Export.CSVPath = override.Export.CSVPath
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: defaultLogLevel},
		Database:  DatabaseConfig{Driver: defaultDBDriver},
		Scheduler: SchedulerConfig{Interval: defaultInterval, Timezone: defaultTimezone, location: tz},
		Fetch:     FetchConfig{Timeout: defaultTimeout, MaxBodyBytes: defaultMaxBody},
		Feeds: []FeedConfig{
			{
				Name:             defaultFeedName,
				URL:              defaultFeedURL,
				OwnStores:        []string{defaultOwnStore},
				ThresholdPercent: domain.DefaultThresholdPercent,
			},
		},
	}
}
